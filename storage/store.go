// Package storage defines the logical key/value store contract backing the
// authorization state. Backends only provide keyed lookup with TTL-based
// eviction; all protocol semantics (single use, expiry validation, rotation)
// live above this contract.
package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned by Get when no live entry exists for a key.
var ErrKeyNotFound = errors.New("key not found")

// Store is a typed key/value store with per-entry TTL. A ttl of zero or less
// means the entry never expires. Implementations must be safe for concurrent
// use; reads of unrelated keys may proceed in parallel.
type Store[T any] interface {
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Get(ctx context.Context, key string) (T, error)
	Delete(ctx context.Context, key string) error
}
