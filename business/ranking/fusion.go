package ranking

import (
	"fmt"
	"sort"

	"priceSense/domain"
)

// Weights of the composite score. Diversity is not applied by Fuse; it is
// the share of the scale left for the diversity stage, so fused scores stay
// within [0, 100*(Bandit+Affinity+Relevance)].
type Weights struct {
	Bandit    float64
	Affinity  float64
	Relevance float64
	Diversity float64
}

func DefaultWeights() Weights {
	return Weights{Bandit: 0.4, Affinity: 0.3, Relevance: 0.2, Diversity: 0.1}
}

func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"bandit": w.Bandit, "affinity": w.Affinity, "relevance": w.Relevance, "diversity": w.Diversity,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("weight %s out of range: %v", name, v)
		}
	}
	if sum := w.Bandit + w.Affinity + w.Relevance + w.Diversity; sum > 1+1e-9 {
		return fmt.Errorf("weights sum to %v, must be <= 1", sum)
	}
	return nil
}

// MaxComposite is the largest value Fuse can return.
func (w Weights) MaxComposite() float64 {
	return 100 * (w.Bandit + w.Affinity + w.Relevance)
}

// Fuse combines the three signals after clamping each to [0, 100].
func (w Weights) Fuse(banditSample, affinity, relevance float64) float64 {
	return w.Bandit*clamp100(banditSample) +
		w.Affinity*clamp100(affinity) +
		w.Relevance*clamp100(relevance)
}

// SortByComposite orders candidates by composite score, highest first.
// Equal scores are ordered by item id.
func SortByComposite(items []domain.ScoredCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Scores.CompositeScore, items[j].Scores.CompositeScore
		if a != b {
			return a > b
		}
		return items[i].Item.ID < items[j].Item.ID
	})
}

func clamp100(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
