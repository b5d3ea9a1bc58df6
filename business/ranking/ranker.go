package ranking

import (
	"context"
	"math/rand/v2"

	"priceSense/domain"
	"priceSense/pkg/logger"
	"priceSense/pkg/metrics"
	"priceSense/pkg/tracing"
)

// BanditSampler draws an exploration-aware popularity score in [0, 100].
// On error the returned score is still usable as a neutral stand-in.
type BanditSampler interface {
	Sample(ctx context.Context, itemID string, rng *rand.Rand) (float64, error)
}

// Report describes substitutions made while ranking.
type Report struct {
	BanditFallbacks int
	BanditErr       error
}

type Ranker struct {
	bandit    BanditSampler
	weights   Weights
	diversity *DiversityInjector
}

func NewRanker(bandit BanditSampler, weights Weights, diversity *DiversityInjector) *Ranker {
	return &Ranker{bandit: bandit, weights: weights, diversity: diversity}
}

// Rank scores every assessed candidate, sorts by composite score and applies
// diversity injection. An empty input yields an empty, non-nil list. Items
// whose bandit sample fell back to the neutral score are counted in the
// report.
func (r *Ranker) Rank(ctx context.Context, q domain.Query, assessed []domain.AssessedCandidate, rng *rand.Rand) ([]domain.Recommendation, Report) {
	var rep Report
	if len(assessed) == 0 {
		return []domain.Recommendation{}, rep
	}

	scored := make([]domain.ScoredCandidate, 0, len(assessed))
	for _, a := range assessed {
		b, err := r.bandit.Sample(ctx, a.Item.ID, rng)
		if err != nil {
			rep.BanditFallbacks++
			rep.BanditErr = err
		}
		aff := Affinity(a.Item, q.Profile)
		rel := Relevance(a.Item, q.Text)

		scored = append(scored, domain.ScoredCandidate{
			Item:    a.Item,
			Verdict: a.Verdict,
			Scores: domain.ScoreVector{
				BanditSample:   b,
				AffinityScore:  aff,
				RelevanceScore: rel,
				CompositeScore: r.weights.Fuse(b, aff, rel),
			},
		})
	}

	SortByComposite(scored)
	final, inj := r.diversity.Inject(scored, rng)
	if inj.Serendipity {
		metrics.SerendipityInjections.Inc()
	}

	recs := make([]domain.Recommendation, len(final))
	for i, c := range final {
		recs[i] = domain.Recommendation{
			Rank:          i + 1,
			Item:          c.Item,
			Scores:        c.Scores,
			Affordability: c.Verdict,
			Serendipity:   inj.Serendipity && c.Item.ID == inj.SerendipityID,
		}
	}

	logger.Debug("ranking_done",
		"trace_id", tracing.TraceIDFromContext(ctx),
		"candidates", len(assessed),
		"returned", len(recs),
		"serendipity", inj.SerendipityID,
		"bandit_fallbacks", rep.BanditFallbacks,
	)
	return recs, rep
}
