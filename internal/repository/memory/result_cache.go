package memory

import (
	"context"
	"time"

	"priceSense/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ResultCache is a bounded in-process search result cache. Entries expire
// after the TTL given at construction; the per-call TTL passed to Set is
// ignored.
type ResultCache struct {
	lru *expirable.LRU[string, domain.SearchResponse]
}

func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		size = 1024
	}
	return &ResultCache{lru: expirable.NewLRU[string, domain.SearchResponse](size, nil, ttl)}
}

func (c *ResultCache) Get(_ context.Context, key string) (*domain.SearchResponse, bool, error) {
	resp, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	return &resp, true, nil
}

func (c *ResultCache) Set(_ context.Context, key string, resp domain.SearchResponse, _ time.Duration) error {
	c.lru.Add(key, resp)
	return nil
}

func (c *ResultCache) Stats(_ context.Context) (map[string]any, error) {
	return map[string]any{
		"backend": "memory",
		"entries": c.lru.Len(),
	}, nil
}
