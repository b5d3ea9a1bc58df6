package bandit

import (
	"context"
	"errors"

	"priceSense/domain"
)

var (
	ErrInvalidParameters = errors.New("bandit: invalid parameters")
	ErrStoreUnavailable  = errors.New("bandit: counter store unavailable")
)

// CounterStore persists per-item Beta counters. Implementations must apply
// increments atomically so concurrent updates to one item are never lost.
// Get reports found=false for an item that has never been updated.
type CounterStore interface {
	Get(ctx context.Context, itemID string) (params domain.BanditParameters, found bool, err error)
	IncrementAlpha(ctx context.Context, itemID string, delta float64) error
	IncrementBeta(ctx context.Context, itemID string, delta float64) error
}

// CounterLister is implemented by stores that can enumerate tracked items.
type CounterLister interface {
	List(ctx context.Context) ([]domain.BanditParameters, error)
}
