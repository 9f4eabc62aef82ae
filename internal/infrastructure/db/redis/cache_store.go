package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roombook/booking-system/internal/core/domain"
)

// compareAndDelete deletes KEYS[1] only when it holds ARGV[1].
// Returns 1 when deleted, 0 on mismatch and -1 when the key is absent.
var compareAndDelete = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
	return -1
end
if current == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CacheStore is a ports.CacheStore backed by Redis. Keys are stored verbatim
// so that every API instance sharing the server sees the same codes.
type CacheStore struct {
	client redis.UniversalClient
}

// NewCacheStore wraps the given Redis client.
func NewCacheStore(client redis.UniversalClient) *CacheStore {
	return &CacheStore{client: client}
}

// Set writes value under key, overwriting any previous value and TTL.
func (s *CacheStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (s *CacheStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrCacheMiss
		}
		return "", fmt.Errorf("cache get: %w", err)
	}
	return v, nil
}

func (s *CacheStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// CompareAndDelete runs the check and the delete as one server-side script so
// two concurrent redemptions of the same code cannot both succeed.
func (s *CacheStore) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	n, err := compareAndDelete.Run(ctx, s.client, []string{key}, expected).Int()
	if err != nil {
		return false, fmt.Errorf("cache compare-and-delete: %w", err)
	}
	switch {
	case n < 0:
		return false, domain.ErrCacheMiss
	case n == 0:
		return false, nil
	default:
		return true, nil
	}
}

func (s *CacheStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
