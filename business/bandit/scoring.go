package bandit

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"

	"priceSense/domain"
	"priceSense/pkg/logger"
	"priceSense/pkg/metrics"
	"priceSense/pkg/tracing"
)

// Store is the Thompson-sampling view over a CounterStore.
type Store struct {
	counters CounterStore
	cfg      Config
}

func NewStore(counters CounterStore, cfg Config) *Store {
	return &Store{counters: counters, cfg: cfg}
}

// Params returns the current posterior for itemID, with the prior standing in
// for unseen items. Values below epsilon are clamped up.
func (s *Store) Params(ctx context.Context, itemID string) (domain.BanditParameters, error) {
	p, found, err := s.counters.Get(ctx, itemID)
	if err != nil {
		return domain.BanditParameters{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !found {
		return domain.BanditParameters{ItemID: itemID, Alpha: s.cfg.PriorAlpha, Beta: s.cfg.PriorBeta}, nil
	}

	p.ItemID = itemID
	if !(p.Alpha >= s.cfg.Epsilon) || !(p.Beta >= s.cfg.Epsilon) || math.IsInf(p.Alpha, 0) || math.IsInf(p.Beta, 0) {
		logger.Warn("bandit_params_clamped",
			"trace_id", tracing.TraceIDFromContext(ctx),
			"item_id", itemID,
			"alpha", p.Alpha,
			"beta", p.Beta,
		)
		p.Alpha = s.sanitize(p.Alpha, s.cfg.PriorAlpha)
		p.Beta = s.sanitize(p.Beta, s.cfg.PriorBeta)
	}
	return p, nil
}

func (s *Store) sanitize(v, prior float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return prior
	}
	return math.Max(v, s.cfg.Epsilon)
}

// Sample draws a Thompson score in [0, 100] for itemID. A store failure
// yields the neutral score together with an ErrStoreUnavailable error, so
// callers can rank with the score and still report the substitution.
func (s *Store) Sample(ctx context.Context, itemID string, rng *rand.Rand) (float64, error) {
	p, err := s.Params(ctx, itemID)
	if err != nil {
		metrics.BanditSampleFallbacks.Inc()
		logger.Warn("bandit_sample_fallback",
			"trace_id", tracing.TraceIDFromContext(ctx),
			"item_id", itemID,
			"error", err,
		)
		return s.cfg.NeutralScore, err
	}
	if rng == nil {
		rng = newRand()
	}
	return sampleBeta(p.Alpha, p.Beta, rng), nil
}

// Update applies a reward: positive rewards add to alpha, negative rewards
// add their magnitude to beta, zero is a no-op.
func (s *Store) Update(ctx context.Context, itemID string, reward float64) error {
	if itemID == "" || math.IsNaN(reward) || math.IsInf(reward, 0) {
		return fmt.Errorf("%w: item %q reward %v", ErrInvalidParameters, itemID, reward)
	}

	var err error
	switch {
	case reward > 0:
		err = s.counters.IncrementAlpha(ctx, itemID, reward)
	case reward < 0:
		err = s.counters.IncrementBeta(ctx, itemID, -reward)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", itemID, err)
	}

	logger.Debug("bandit_update",
		"trace_id", tracing.TraceIDFromContext(ctx),
		"item_id", itemID,
		"reward", reward,
	)
	return nil
}

// Stats aggregates the posteriors of every tracked item. Stores that cannot
// enumerate their items report an empty summary.
func (s *Store) Stats(ctx context.Context) (domain.BanditStats, error) {
	lister, ok := s.counters.(CounterLister)
	if !ok {
		return domain.BanditStats{}, nil
	}

	all, err := lister.List(ctx)
	if err != nil {
		return domain.BanditStats{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(all) == 0 {
		return domain.BanditStats{}, nil
	}

	var sumA, sumB, sumConv float64
	for _, p := range all {
		sumA += p.Alpha
		sumB += p.Beta
		sumConv += p.Mean()
	}
	n := float64(len(all))
	return domain.BanditStats{
		TrackedItems:   len(all),
		MeanAlpha:      sumA / n,
		MeanBeta:       sumB / n,
		MeanConversion: sumConv / n,
	}, nil
}
