package pathfinder

import (
	"context"
	"fmt"
	"math"
	"sort"

	"priceSense/domain"
	"priceSense/pkg/logger"
	"priceSense/pkg/tracing"
)

// Catalog looks up same-cluster substitutes.
type Catalog interface {
	FindCheaperInCluster(ctx context.Context, clusterID string, maxPrice float64, excludeID string, limit int) ([]domain.CandidateItem, error)
}

// Oracle judges whether the user can afford an item.
type Oracle interface {
	Evaluate(ctx context.Context, item domain.CandidateItem, profile *domain.UserProfile) (domain.AffordabilityVerdict, error)
}

type Config struct {
	Targets             int
	SavingsMonths       []int
	SavingsBuffer       float64 // share of disposable income a plan may take
	FinancingMonths     []int
	DefaultAPR          float64
	APRIncrease         float64
	CheaperRatio        float64 // substitutes must cost less than price*ratio
	AlternativesPerItem int
	MaxPaths            int
}

func DefaultConfig() Config {
	return Config{
		Targets:             3,
		SavingsMonths:       []int{3, 6, 9, 12},
		SavingsBuffer:       0.8,
		FinancingMonths:     []int{18, 24, 36},
		DefaultAPR:          9.9,
		APRIncrease:         2,
		CheaperRatio:        0.8,
		AlternativesPerItem: 2,
		MaxPaths:            3,
	}
}

type Result struct {
	Paths      []domain.AlternativePath
	Affordable []domain.AssessedCandidate
	Warnings   []string
}

type Pathfinder struct {
	catalog Catalog
	oracle  Oracle
	cfg     Config
}

func New(catalog Catalog, oracle Oracle, cfg Config) *Pathfinder {
	return &Pathfinder{catalog: catalog, oracle: oracle, cfg: cfg}
}

type scoredPath struct {
	path       domain.AlternativePath
	affordable bool
	months     int
	candidate  *domain.AssessedCandidate
	rank       float64
}

// FindAlternatives explores savings plans, longer financing and cheaper
// same-cluster items for the first Targets candidates. Collaborator failures
// are reported as warnings; only context cancellation is returned as an
// error.
func (p *Pathfinder) FindAlternatives(ctx context.Context, candidates []domain.CandidateItem, profile *domain.UserProfile) (Result, error) {
	var res Result
	if len(candidates) == 0 {
		return res, nil
	}

	targets := candidates[:min(p.cfg.Targets, len(candidates))]
	var all []scoredPath

	for _, item := range targets {
		all = append(all, p.savingsPaths(item, profile)...)
	}

	for _, item := range targets {
		if !item.FinancingAvailable || p.oracle == nil {
			continue
		}
		paths, err := p.financingPaths(ctx, item, profile)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("financing terms for %s: %v", item.ID, err))
		}
		all = append(all, paths...)
	}

	for _, item := range targets {
		if item.ClusterID == "" || p.catalog == nil {
			continue
		}
		paths, err := p.clusterPaths(ctx, item, profile)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Warnings = append(res.Warnings, fmt.Sprintf("cheaper alternatives for %s: %v", item.ID, err))
		}
		all = append(all, paths...)
	}

	for i := range all {
		all[i].rank = rankScore(all[i])
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].rank > all[j].rank })
	if len(all) > p.cfg.MaxPaths {
		all = all[:p.cfg.MaxPaths]
	}

	seen := map[string]bool{}
	for _, sp := range all {
		res.Paths = append(res.Paths, sp.path)
		if sp.affordable && sp.candidate != nil && !seen[sp.candidate.Item.ID] {
			seen[sp.candidate.Item.ID] = true
			res.Affordable = append(res.Affordable, *sp.candidate)
		}
	}

	logger.Info("pathfinder_done",
		"trace_id", tracing.TraceIDFromContext(ctx),
		"paths", len(res.Paths),
		"affordable", len(res.Affordable),
	)
	return res, nil
}

func (p *Pathfinder) savingsPaths(item domain.CandidateItem, profile *domain.UserProfile) []scoredPath {
	if profile == nil || item.Price <= 0 {
		return nil
	}
	disposable := profile.MonthlyIncome - profile.MonthlyExpenses
	if disposable <= 0 {
		return nil
	}

	var out []scoredPath
	for _, months := range p.cfg.SavingsMonths {
		monthly := item.Price / float64(months)
		if monthly >= disposable*p.cfg.SavingsBuffer {
			continue
		}
		out = append(out, scoredPath{
			path: domain.AlternativePath{
				Kind:           domain.AlternativeSavings,
				ItemID:         item.ID,
				Description:    fmt.Sprintf("Save %.2f/month for %d months to buy %s", monthly, months, item.Name),
				Viability:      savingsViability(monthly / disposable),
				MonthsToSave:   months,
				MonthlyPayment: round2(monthly),
			},
			months: months,
		})
	}
	return out
}

func (p *Pathfinder) financingPaths(ctx context.Context, item domain.CandidateItem, profile *domain.UserProfile) ([]scoredPath, error) {
	apr := item.FinancingAPR
	if apr <= 0 {
		apr = p.cfg.DefaultAPR
	}
	apr += p.cfg.APRIncrease

	var out []scoredPath
	for _, months := range p.cfg.FinancingMonths {
		extended := item
		extended.FinancingMonths = months
		extended.FinancingAPR = apr

		verdict, err := p.oracle.Evaluate(ctx, extended, profile)
		if err != nil {
			return out, err
		}
		if !verdict.CanAffordFinancing {
			continue
		}

		payment := MonthlyPayment(item.Price, apr, months)
		out = append(out, scoredPath{
			path: domain.AlternativePath{
				Kind:           domain.AlternativeFinancing,
				ItemID:         item.ID,
				Description:    fmt.Sprintf("Finance %s over %d months at %.1f%% APR (%.2f/month)", item.Name, months, apr, payment),
				Viability:      math.Min(verdict.Score, 100),
				MonthlyPayment: round2(payment),
			},
			affordable: true,
			months:     months,
		})
	}
	return out, nil
}

func (p *Pathfinder) clusterPaths(ctx context.Context, item domain.CandidateItem, profile *domain.UserProfile) ([]scoredPath, error) {
	alts, err := p.catalog.FindCheaperInCluster(ctx, item.ClusterID, item.Price*p.cfg.CheaperRatio, item.ID, p.cfg.AlternativesPerItem)
	if err != nil {
		return nil, err
	}

	var out []scoredPath
	for _, alt := range alts {
		verdict := domain.AffordabilityVerdict{Risk: domain.RiskRisky}
		if p.oracle != nil {
			v, err := p.oracle.Evaluate(ctx, alt, profile)
			if err != nil {
				return out, err
			}
			verdict = v
		}

		saved := item.Price - alt.Price
		pct := 0.0
		if item.Price > 0 {
			pct = saved / item.Price * 100
		}
		viability := 50 + pct/2
		if verdict.Affordable() {
			viability = 100
		}

		out = append(out, scoredPath{
			path: domain.AlternativePath{
				Kind:          domain.AlternativeCheaper,
				ItemID:        item.ID,
				AlternativeID: alt.ID,
				Description:   fmt.Sprintf("Similar to %s but %.2f cheaper (%.0f%% savings): %s", item.Name, saved, pct, alt.Name),
				Viability:     viability,
				Savings:       round2(saved),
			},
			affordable: verdict.Affordable(),
			months:     0,
			candidate:  &domain.AssessedCandidate{Item: alt, Verdict: verdict},
		})
	}
	return out, nil
}

// rankScore orders paths: affordable ones first, then shorter timelines,
// then concrete substitutes over plans.
func rankScore(sp scoredPath) float64 {
	score := sp.path.Viability
	if sp.affordable {
		score += 100
	}
	switch {
	case sp.months <= 6:
		score += 20
	case sp.months <= 12:
		score += 10
	}
	if sp.path.Kind == domain.AlternativeCheaper {
		score += 15
	}
	return score
}

func savingsViability(ratio float64) float64 {
	switch {
	case ratio < 0.2:
		return 100
	case ratio < 0.4:
		return 80
	case ratio < 0.6:
		return 60
	case ratio < 0.8:
		return 40
	}
	return 20
}

// MonthlyPayment is the level payment of an amortized loan.
func MonthlyPayment(principal, apr float64, months int) float64 {
	if months <= 0 {
		return principal
	}
	if apr <= 0 {
		return principal / float64(months)
	}
	r := apr / 100 / 12
	f := math.Pow(1+r, float64(months))
	return principal * r * f / (f - 1)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
