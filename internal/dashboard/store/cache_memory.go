package store

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"rctrack/internal/dashboard/models"
)

// MemoryCache keeps stats in process. Used when no Redis is configured.
type MemoryCache struct {
	cache *gocache.Cache

	mu   sync.Mutex
	gens map[string]uint64
}

// NewMemoryCache expires values after ttl and sweeps expired items every 2*ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		cache: gocache.New(ttl, 2*ttl),
		gens:  make(map[string]uint64),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (models.Stats, error) {
	v, found := c.cache.Get(key)
	if !found {
		return models.Stats{}, ErrCacheMiss
	}
	s, ok := v.(models.Stats)
	if !ok {
		c.cache.Delete(key)
		return models.Stats{}, ErrCacheMiss
	}
	return s, nil
}

func (c *MemoryCache) Version(_ context.Context, key string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

func (c *MemoryCache) SetIfVersion(_ context.Context, key string, version uint64, s models.Stats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != version {
		return ErrStaleVersion
	}
	c.cache.SetDefault(key, s)
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.gens[k]++
		c.cache.Delete(k)
	}
	return nil
}
