package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"priceSense/business/bandit"
	"priceSense/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a Redis instance on localhost:6379 and skip without one.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func itemID(t *testing.T, client *redis.Client) string {
	t.Helper()
	id := "test-" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), counterKey(id)) })
	return id
}

func TestCounterStore_MissingItem(t *testing.T) {
	client := testClient(t)
	store := NewCounterStore(client, 1, 1)

	p, found, err := store.Get(context.Background(), itemID(t, client))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1.0, p.Alpha)
	assert.Equal(t, 1.0, p.Beta)
}

func TestCounterStore_IncrementSeedsPrior(t *testing.T) {
	client := testClient(t)
	store := NewCounterStore(client, 1, 1)
	ctx := context.Background()
	id := itemID(t, client)

	require.NoError(t, store.IncrementAlpha(ctx, id, 0.7))
	require.NoError(t, store.IncrementBeta(ctx, id, 0.5))

	p, found, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, found)
	assert.InDelta(t, 1.7, p.Alpha, 1e-9)
	assert.InDelta(t, 1.5, p.Beta, 1e-9)
}

func TestCounterStore_RejectsInvalidDelta(t *testing.T) {
	client := testClient(t)
	store := NewCounterStore(client, 1, 1)

	err := store.IncrementAlpha(context.Background(), itemID(t, client), -1)
	assert.ErrorIs(t, err, bandit.ErrInvalidParameters)
}

func TestCounterStore_ConcurrentIncrements(t *testing.T) {
	client := testClient(t)
	store := NewCounterStore(client, 1, 1)
	ctx := context.Background()
	id := itemID(t, client)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.IncrementAlpha(ctx, id, 1))
		}()
	}
	wg.Wait()

	p, _, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 1+n, p.Alpha, 1e-6)
	assert.InDelta(t, 1.0, p.Beta, 1e-9)
}

func TestCounterStore_List(t *testing.T) {
	client := testClient(t)
	store := NewCounterStore(client, 1, 1)
	ctx := context.Background()
	a, b := itemID(t, client), itemID(t, client)

	require.NoError(t, store.IncrementAlpha(ctx, a, 2))
	require.NoError(t, store.IncrementBeta(ctx, b, 3))

	all, err := store.List(ctx)
	require.NoError(t, err)

	byID := map[string]domain.BanditParameters{}
	for _, p := range all {
		byID[p.ItemID] = p
	}
	assert.InDelta(t, 3.0, byID[a].Alpha, 1e-9)
	assert.InDelta(t, 4.0, byID[b].Beta, 1e-9)
}

func TestResultCache_RoundTripAndMiss(t *testing.T) {
	client := testClient(t)
	cache := NewResultCache(client)
	ctx := context.Background()
	key := "search:test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	resp := domain.SearchResponse{
		Success:         true,
		Query:           "laptop",
		PathTaken:       domain.PathSmart,
		TotalCandidates: 4,
		Recommendations: []domain.Recommendation{{Rank: 1, Item: domain.CandidateItem{ID: "lap-1"}}},
	}
	require.NoError(t, cache.Set(ctx, key, resp, time.Minute))

	got, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "lap-1", got.Recommendations[0].Item.ID)
	assert.Equal(t, 4, got.TotalCandidates)

	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "redis", stats["backend"])
}
