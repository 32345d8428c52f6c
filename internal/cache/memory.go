package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const defaultCleanupInterval = 10 * time.Minute

// MemoryCache keeps answers in process memory.
type MemoryCache struct {
	cache *gocache.Cache
}

// NewMemoryCache creates a cache whose entries expire after defaultTTL.
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &MemoryCache{cache: gocache.New(defaultTTL, defaultCleanupInterval)}
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	v, found := m.cache.Get(key)
	if !found {
		return "", false, nil
	}
	answer, ok := v.(string)
	return answer, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key, answer string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.cache.Set(key, answer, ttl)
	return nil
}

func (m *MemoryCache) Flush(context.Context) error {
	m.cache.Flush()
	return nil
}

func (m *MemoryCache) Close() error {
	return nil
}
