package explain

import (
	"context"
	"fmt"
	"strings"

	"priceSense/domain"
	"priceSense/pkg/llm"
)

type Explainer interface {
	Explain(ctx context.Context, query string, profile *domain.UserProfile, rec domain.Recommendation) (string, error)
}

// Template builds a short explanation from the score vector alone.
type Template struct{}

func (Template) Explain(_ context.Context, _ string, _ *domain.UserProfile, rec domain.Recommendation) (string, error) {
	var reasons []string
	s := rec.Scores

	if s.BanditSample > 70 {
		reasons = append(reasons, "popular choice among shoppers")
	}
	if s.AffinityScore > 50 {
		reasons = append(reasons, "matches what similar users bought")
	}
	if s.RelevanceScore > 60 {
		reasons = append(reasons, "closely matches your search")
	}
	if rec.Item.Rating >= 4.5 {
		reasons = append(reasons, fmt.Sprintf("highly rated (%.1f/5)", rec.Item.Rating))
	}
	if !rec.Affordability.Neutral {
		switch {
		case rec.Affordability.CanAffordCash:
			reasons = append(reasons, "affordable with cash")
		case rec.Affordability.CanAffordFinancing:
			reasons = append(reasons, "affordable with financing")
		}
	}
	if rec.Serendipity {
		reasons = append(reasons, "something different to explore")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "strong overall match")
	}

	return fmt.Sprintf("%s: %s.", rec.Item.Name, strings.Join(reasons, ", ")), nil
}

// LLM asks a chat model for the explanation.
type LLM struct {
	client llm.Client
}

func NewLLM(client llm.Client) *LLM {
	return &LLM{client: client}
}

const systemPrompt = "You explain product recommendations to shoppers. " +
	"Answer in at most three sentences. Use the numbers you are given and be honest about risk."

func (e *LLM) Explain(ctx context.Context, query string, profile *domain.UserProfile, rec domain.Recommendation) (string, error) {
	out, err := e.client.Chat(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildPrompt(query, profile, rec)},
	})
	if err != nil {
		return "", fmt.Errorf("llm explain %s: %w", rec.Item.ID, err)
	}
	return out, nil
}

func buildPrompt(query string, profile *domain.UserProfile, rec domain.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search query: %q\n", query)
	fmt.Fprintf(&b, "Product: %s (%s), price %.2f, rating %.1f/5 from %d reviews\n",
		rec.Item.Name, rec.Item.Category, rec.Item.Price, rec.Item.Rating, rec.Item.ReviewCount)
	fmt.Fprintf(&b, "Scores out of 100: overall %.1f, popularity %.1f, relevance %.1f, personal fit %.1f\n",
		rec.Scores.FinalScore, rec.Scores.BanditSample, rec.Scores.RelevanceScore, rec.Scores.AffinityScore)
	if !rec.Affordability.Neutral {
		fmt.Fprintf(&b, "Affordable with cash: %t, with financing: %t, risk: %s\n",
			rec.Affordability.CanAffordCash, rec.Affordability.CanAffordFinancing, rec.Affordability.Risk)
	}
	if profile != nil {
		fmt.Fprintf(&b, "Shopper monthly income %.2f, credit score %.0f\n", profile.MonthlyIncome, profile.CreditScore)
	}
	b.WriteString("Why is this a good recommendation?")
	return b.String()
}
