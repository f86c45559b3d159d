// Package memstore provides the default in-memory storage backend, built on
// ttlcache so expired entries are evicted without a bespoke janitor.
package memstore

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/idkit/go-oidc-provider/storage"
)

// Store implements storage.Store with a ttlcache-backed map.
type Store[T any] struct {
	cache *ttlcache.Cache[string, T]
}

// New creates an in-memory store with automatic cleanup of expired entries.
func New[T any]() *Store[T] {
	cache := ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, T](),
	)
	go cache.Start()

	return &Store[T]{cache: cache}
}

// Set stores a value. A ttl of zero or less keeps the entry until deleted.
func (s *Store[T]) Set(_ context.Context, key string, value T, ttl time.Duration) error {
	if ttl <= 0 {
		s.cache.Set(key, value, ttlcache.NoTTL)
		return nil
	}
	s.cache.Set(key, value, ttl)
	return nil
}

// Get retrieves a live value for the key.
func (s *Store[T]) Get(_ context.Context, key string) (T, error) {
	item := s.cache.Get(key)
	if item == nil {
		var zero T
		return zero, storage.ErrKeyNotFound
	}
	return item.Value(), nil
}

// Delete removes the entry for the key, if present.
func (s *Store[T]) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Close stops the cleanup goroutine.
func (s *Store[T]) Close() error {
	s.cache.Stop()
	return nil
}
