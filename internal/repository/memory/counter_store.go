package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"priceSense/business/bandit"
	"priceSense/domain"
)

// CounterStore keeps bandit counters in process. Used when Redis is disabled
// and in tests.
type CounterStore struct {
	mu         sync.Mutex
	priorAlpha float64
	priorBeta  float64
	items      map[string]domain.BanditParameters
}

func NewCounterStore(priorAlpha, priorBeta float64) *CounterStore {
	return &CounterStore{
		priorAlpha: priorAlpha,
		priorBeta:  priorBeta,
		items:      make(map[string]domain.BanditParameters),
	}
}

func (s *CounterStore) Get(ctx context.Context, itemID string) (domain.BanditParameters, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.BanditParameters{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.items[itemID]
	return p, ok, nil
}

func (s *CounterStore) IncrementAlpha(ctx context.Context, itemID string, delta float64) error {
	return s.increment(ctx, itemID, delta, true)
}

func (s *CounterStore) IncrementBeta(ctx context.Context, itemID string, delta float64) error {
	return s.increment(ctx, itemID, delta, false)
}

func (s *CounterStore) increment(ctx context.Context, itemID string, delta float64, alpha bool) error {
	if !bandit.ValidDelta(delta) {
		return fmt.Errorf("%w: delta %v", bandit.ErrInvalidParameters, delta)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.items[itemID]
	if !ok {
		p = domain.BanditParameters{ItemID: itemID, Alpha: s.priorAlpha, Beta: s.priorBeta}
	}
	if alpha {
		p.Alpha += delta
	} else {
		p.Beta += delta
	}
	s.items[itemID] = p
	return nil
}

func (s *CounterStore) List(ctx context.Context) ([]domain.BanditParameters, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	out := make([]domain.BanditParameters, 0, len(s.items))
	for _, p := range s.items {
		out = append(out, p)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}
