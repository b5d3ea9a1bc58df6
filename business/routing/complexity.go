package routing

import (
	"math"
	"strings"

	"priceSense/domain"
)

type ProfileCompleteness int

const (
	ProfileAbsent ProfileCompleteness = iota
	ProfilePartial
	ProfileComplete
)

// Completeness grades how much of the numeric profile the caller supplied.
func Completeness(p *domain.UserProfile) ProfileCompleteness {
	if p == nil {
		return ProfileAbsent
	}
	if p.MonthlyIncome > 0 && p.MonthlyExpenses > 0 && p.Savings >= 0 && p.CreditScore > 0 {
		return ProfileComplete
	}
	if p.MonthlyIncome > 0 || p.CreditScore > 0 {
		return ProfilePartial
	}
	return ProfileAbsent
}

var (
	DefaultFinancialKeywords = []string{
		"afford", "financing", "budget", "credit", "payment", "loan",
		"monthly", "installment", "debt", "income", "savings",
		"price range", "cheap", "expensive", "cost",
	}
	DefaultSpecificityTerms = []string{"professional", "gaming", "student", "business", "premium"}
)

const (
	longQueryWords   = 10
	mediumQueryWords = 5

	weightLongQuery      = 0.10
	weightMediumQuery    = 0.05
	weightPerKeyword     = 0.10
	capKeywords          = 0.30
	weightProfileFull    = 0.30
	weightProfilePartial = 0.15
	weightImage          = 0.20
	weightSpecificity    = 0.10
)

// Estimator scores how much analysis a request needs. It is pure and safe
// for concurrent use.
type Estimator struct {
	financial   []string
	specificity []string
}

// NewEstimator builds an estimator; nil keyword lists select the defaults.
func NewEstimator(financial, specificity []string) *Estimator {
	if len(financial) == 0 {
		financial = DefaultFinancialKeywords
	}
	if len(specificity) == 0 {
		specificity = DefaultSpecificityTerms
	}
	return &Estimator{
		financial:   lowerAll(financial),
		specificity: lowerAll(specificity),
	}
}

// Estimate returns a complexity score in [0, 1]. An empty query scores 0.
func (e *Estimator) Estimate(query string, hasUserContext bool, completeness ProfileCompleteness, hasImage bool) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	score := 0.0

	switch words := len(strings.Fields(q)); {
	case words > longQueryWords:
		score += weightLongQuery
	case words > mediumQueryWords:
		score += weightMediumQuery
	}

	matches := 0
	for _, kw := range e.financial {
		if strings.Contains(q, kw) {
			matches++
		}
	}
	score += math.Min(float64(matches)*weightPerKeyword, capKeywords)

	if hasUserContext {
		switch completeness {
		case ProfileComplete:
			score += weightProfileFull
		case ProfilePartial:
			score += weightProfilePartial
		}
	}

	if hasImage {
		score += weightImage
	}

	for _, term := range e.specificity {
		if strings.Contains(q, term) {
			score += weightSpecificity
			break
		}
	}

	return math.Max(0, math.Min(1, score))
}

// EstimateQuery is Estimate over a normalized query.
func (e *Estimator) EstimateQuery(q domain.Query) float64 {
	c := Completeness(q.Profile)
	return e.Estimate(q.Text, q.Profile != nil, c, q.HasImage)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
