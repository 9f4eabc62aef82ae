package ports

import (
	"context"
	"time"
)

// CacheStore is a key/value store with per-key TTL shared by all instances.
// Get returns domain.ErrCacheMiss for absent or expired keys.
type CacheStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// CompareAndDelete removes key only if it currently holds expected and
	// reports whether it did. At most one concurrent caller observes true.
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	Ping(ctx context.Context) error
}
