package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"priceSense/business/bandit"
	"priceSense/domain"

	"github.com/redis/go-redis/v9"
)

const (
	counterKeyPrefix = "thompson:"
	fieldAlpha       = "alpha"
	fieldBeta        = "beta"
)

// CounterStore keeps each item's Beta counters in one hash,
// "thompson:{item_id}", with float fields alpha and beta.
type CounterStore struct {
	client     *redis.Client
	priorAlpha float64
	priorBeta  float64
}

func NewCounterStore(client *redis.Client, priorAlpha, priorBeta float64) *CounterStore {
	return &CounterStore{
		client:     client,
		priorAlpha: priorAlpha,
		priorBeta:  priorBeta,
	}
}

func counterKey(itemID string) string {
	return counterKeyPrefix + itemID
}

func (s *CounterStore) Get(ctx context.Context, itemID string) (domain.BanditParameters, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.BanditParameters{}, false, fmt.Errorf("context error: %w", err)
	}

	vals, err := s.client.HMGet(ctx, counterKey(itemID), fieldAlpha, fieldBeta).Result()
	if err != nil {
		return domain.BanditParameters{}, false, fmt.Errorf("%w: hmget %s: %v", bandit.ErrStoreUnavailable, itemID, err)
	}

	return s.decode(itemID, vals)
}

func (s *CounterStore) decode(itemID string, vals []any) (domain.BanditParameters, bool, error) {
	p := domain.BanditParameters{ItemID: itemID, Alpha: s.priorAlpha, Beta: s.priorBeta}
	found := false

	for i, dst := range []*float64{&p.Alpha, &p.Beta} {
		raw, ok := vals[i].(string)
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.BanditParameters{}, false, fmt.Errorf("%w: corrupt counter %s: %v", bandit.ErrInvalidParameters, itemID, err)
		}
		*dst = v
		found = true
	}
	return p, found, nil
}

func (s *CounterStore) IncrementAlpha(ctx context.Context, itemID string, delta float64) error {
	return s.increment(ctx, itemID, fieldAlpha, delta)
}

func (s *CounterStore) IncrementBeta(ctx context.Context, itemID string, delta float64) error {
	return s.increment(ctx, itemID, fieldBeta, delta)
}

// increment seeds both fields with the prior if absent and adds delta in a
// single MULTI/EXEC, so concurrent writers never lose an update.
func (s *CounterStore) increment(ctx context.Context, itemID, field string, delta float64) error {
	if !bandit.ValidDelta(delta) {
		return fmt.Errorf("%w: delta %v", bandit.ErrInvalidParameters, delta)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	key := counterKey(itemID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldAlpha, s.priorAlpha)
		pipe.HSetNX(ctx, key, fieldBeta, s.priorBeta)
		pipe.HIncrByFloat(ctx, key, field, delta)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: increment %s.%s: %v", bandit.ErrStoreUnavailable, itemID, field, err)
	}
	return nil
}

// List scans every counter hash. Intended for stats, not the request path.
func (s *CounterStore) List(ctx context.Context) ([]domain.BanditParameters, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, counterKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: scan counters: %v", bandit.ErrStoreUnavailable, err)
	}
	if len(keys) == 0 {
		return []domain.BanditParameters{}, nil
	}

	cmds := make([]*redis.SliceCmd, len(keys))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.HMGet(ctx, k, fieldAlpha, fieldBeta)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: read counters: %v", bandit.ErrStoreUnavailable, err)
	}

	out := make([]domain.BanditParameters, 0, len(keys))
	for i, k := range keys {
		p, found, err := s.decode(strings.TrimPrefix(k, counterKeyPrefix), cmds[i].Val())
		if err != nil || !found {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}
