// Package redisstore provides a redis-backed storage backend for deployments
// where authorization state must survive process restarts or be shared
// between replicas.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/idkit/go-oidc-provider/storage"
)

// Store implements storage.Store on a redis client. Values are stored as
// JSON under "<prefix>:<key>", with redis handling TTL eviction.
type Store[T any] struct {
	client *redis.Client
	prefix string
}

// New creates a redis-backed store. The prefix namespaces keys so several
// stores can share one database.
func New[T any](client *redis.Client, prefix string) *Store[T] {
	return &Store[T]{
		client: client,
		prefix: prefix,
	}
}

func (s *Store[T]) redisKey(key string) string {
	return fmt.Sprintf("%s:%s", s.prefix, key)
}

// Set stores a value. A ttl of zero or less keeps the entry until deleted.
func (s *Store[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "[redisstore.Set] marshal value")
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.redisKey(key), data, ttl).Err(); err != nil {
		return errors.Wrap(err, "[redisstore.Set] redis SET")
	}
	return nil
}

// Get retrieves a live value for the key.
func (s *Store[T]) Get(ctx context.Context, key string) (T, error) {
	var value T

	data, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return value, storage.ErrKeyNotFound
	}
	if err != nil {
		return value, errors.Wrap(err, "[redisstore.Get] redis GET")
	}

	if err := json.Unmarshal(data, &value); err != nil {
		return value, errors.Wrap(err, "[redisstore.Get] unmarshal value")
	}
	return value, nil
}

// Delete removes the entry for the key, if present.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return errors.Wrap(err, "[redisstore.Delete] redis DEL")
	}
	return nil
}
