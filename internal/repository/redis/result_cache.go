package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"priceSense/domain"

	"github.com/redis/go-redis/v9"
)

// ResultCache stores search responses as JSON strings with a TTL.
type ResultCache struct {
	client *redis.Client
}

func NewResultCache(client *redis.Client) *ResultCache {
	return &ResultCache{client: client}
}

func (c *ResultCache) Get(ctx context.Context, key string) (*domain.SearchResponse, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached result: %w", err)
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal([]byte(val), &resp); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return &resp, true, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, resp domain.SearchResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store result in Redis: %w", err)
	}

	return nil
}

// Stats reports key count and memory usage of the backing database.
func (c *ResultCache) Stats(ctx context.Context) (map[string]any, error) {
	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read db size: %w", err)
	}

	stats := map[string]any{
		"backend": "redis",
		"keys":    size,
	}

	info, err := c.client.Info(ctx, "memory").Result()
	if err == nil {
		for _, line := range strings.Split(info, "\r\n") {
			if v, ok := strings.CutPrefix(line, "used_memory_human:"); ok {
				stats["usedMemory"] = v
			}
		}
	}

	return stats, nil
}

func (c *ResultCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
