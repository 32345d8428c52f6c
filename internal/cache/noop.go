package cache

import (
	"context"
	"time"
)

// NoOpCache never stores anything. Used when caching is disabled or
// Redis is unavailable.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (c *NoOpCache) Set(ctx context.Context, key, answer string, ttl time.Duration) error {
	return nil
}

func (c *NoOpCache) Flush(ctx context.Context) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
