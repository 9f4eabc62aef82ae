// Package memory provides a process-local ports.CacheStore for single-instance
// deployments and tests. Codes stored here are not visible to other instances.
package memory

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/roombook/booking-system/internal/core/domain"
)

const cleanupInterval = time.Minute

type Store struct {
	mu sync.Mutex // serialises CompareAndDelete against Set
	c  *gocache.Cache
}

func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Set(key, value, ttl)
	return nil
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", domain.ErrCacheMiss
	}
	str, _ := v.(string)
	return str, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

func (s *Store) CompareAndDelete(_ context.Context, key, expected string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.c.Get(key)
	if !ok {
		return false, domain.ErrCacheMiss
	}
	if str, _ := v.(string); str != expected {
		return false, nil
	}
	s.c.Delete(key)
	return true, nil
}

func (s *Store) Ping(context.Context) error { return nil }
