package ranking

import (
	"math/rand/v2"
	"sort"

	"priceSense/domain"
)

const minDiversityInput = 3

// DiversityConfig shapes the positional exploration policy.
type DiversityConfig struct {
	OutputSize       int     // K
	ExploitPositions int     // P
	JitterSlots      int     // slots after P that receive noise
	JitterSigma      float64 // std-dev of the noise, in score points
	MaxJitter        float64 // absolute cap on the noise
	SerendipityBonus float64
}

func DefaultDiversityConfig() DiversityConfig {
	return DiversityConfig{
		OutputSize:       10,
		ExploitPositions: 7,
		JitterSlots:      2,
		JitterSigma:      0.5,
		MaxJitter:        5,
		SerendipityBonus: 15,
	}
}

// DiversityInjector applies the positional explore/exploit policy to a list
// already sorted by composite score.
type DiversityInjector struct {
	cfg DiversityConfig
}

func NewDiversityInjector(cfg DiversityConfig) *DiversityInjector {
	return &DiversityInjector{cfg: cfg}
}

// Injection reports what Inject did besides reordering.
type Injection struct {
	Serendipity   bool
	SerendipityID string
}

// Inject returns at most OutputSize candidates with FinalScore set.
// Positions 1..P keep the composite order. The next JitterSlots positions are
// reordered by composite plus bounded noise. The last slot goes to the first
// remaining candidate whose group differs from the top item's, boosted by
// SerendipityBonus. Inputs shorter than three are returned in composite order.
func (d *DiversityInjector) Inject(ranked []domain.ScoredCandidate, rng *rand.Rand) ([]domain.ScoredCandidate, Injection) {
	k := d.cfg.OutputSize
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}

	if len(ranked) < minDiversityInput {
		out := make([]domain.ScoredCandidate, len(ranked))
		for i, c := range ranked {
			c.Scores.DiversityBonus = 0
			c.Scores.FinalScore = c.Scores.CompositeScore
			out[i] = c
		}
		return out[:k], Injection{}
	}

	p := min(d.cfg.ExploitPositions, k)
	out := make([]domain.ScoredCandidate, 0, k)
	for _, c := range ranked[:p] {
		c.Scores.DiversityBonus = 0
		c.Scores.FinalScore = c.Scores.CompositeScore
		out = append(out, c)
	}

	rest := make([]domain.ScoredCandidate, len(ranked)-p)
	copy(rest, ranked[p:])

	var inj Injection
	var serendipity *domain.ScoredCandidate
	top := ranked[0].Item
	for i := range rest {
		if !rest[i].Item.SameGroup(top) {
			c := rest[i]
			c.Scores.DiversityBonus = d.cfg.SerendipityBonus
			c.Scores.FinalScore = c.Scores.CompositeScore + d.cfg.SerendipityBonus
			serendipity = &c
			rest = append(rest[:i], rest[i+1:]...)
			break
		}
	}

	jitterN := min(d.cfg.JitterSlots, len(rest))
	jittered := rest[:jitterN]
	for i := range jittered {
		noise := d.jitter(rng)
		jittered[i].Scores.DiversityBonus = noise
		jittered[i].Scores.FinalScore = jittered[i].Scores.CompositeScore + noise
	}
	sortByFinal(jittered)
	for i := jitterN; i < len(rest); i++ {
		rest[i].Scores.DiversityBonus = 0
		rest[i].Scores.FinalScore = rest[i].Scores.CompositeScore
	}

	room := k - len(out)
	if serendipity != nil {
		room--
	}
	if room > len(rest) {
		room = len(rest)
	}
	if room > 0 {
		out = append(out, rest[:room]...)
	}
	if serendipity != nil && len(out) < k {
		out = append(out, *serendipity)
		inj = Injection{Serendipity: true, SerendipityID: serendipity.Item.ID}
	}

	return out, inj
}

func (d *DiversityInjector) jitter(rng *rand.Rand) float64 {
	if d.cfg.JitterSigma <= 0 {
		return 0
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return clamp(rng.NormFloat64()*d.cfg.JitterSigma, -d.cfg.MaxJitter, d.cfg.MaxJitter)
}

func sortByFinal(items []domain.ScoredCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Scores.FinalScore != items[j].Scores.FinalScore {
			return items[i].Scores.FinalScore > items[j].Scores.FinalScore
		}
		return items[i].Item.ID < items[j].Item.ID
	})
}
