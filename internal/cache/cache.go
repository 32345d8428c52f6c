package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache stores final answers keyed by question.
type Cache interface {
	// Get returns the cached answer and whether it was found.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores an answer with TTL; ttl <= 0 means the backend default.
	Set(ctx context.Context, key, answer string, ttl time.Duration) error

	// Flush drops every cached answer, e.g. after the document is reloaded.
	Flush(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Key derives a stable cache key from its parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}
