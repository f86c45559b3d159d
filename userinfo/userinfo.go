// Package userinfo provides the read-only user claims store the provider
// consumes when assembling ID Token and userinfo claims.
package userinfo

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrUserNotFound is returned when no claims exist for a user identifier.
var ErrUserNotFound = errors.New("user not found")

// Store looks up a user's attribute set by local user identifier.
type Store interface {
	GetClaims(userID string) (map[string]any, error)
}

// InMemory is a Store over a fixed claims map, used in tests and small
// deployments.
type InMemory struct {
	users map[string]map[string]any
	lock  sync.RWMutex
}

var _ Store = (*InMemory)(nil)

// NewInMemory creates a store over the given user claims.
func NewInMemory(users map[string]map[string]any) *InMemory {
	if users == nil {
		users = make(map[string]map[string]any)
	}
	return &InMemory{users: users}
}

func (s *InMemory) GetClaims(userID string) (map[string]any, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	claims, ok := s.users[userID]
	if !ok {
		return nil, errors.Wrapf(ErrUserNotFound, "%q", userID)
	}

	copied := make(map[string]any, len(claims))
	for k, v := range claims {
		copied[k] = v
	}
	return copied, nil
}

// Upsert sets the claims for a user. Not part of the Store contract the
// provider uses; the registry is read-only towards the core.
func (s *InMemory) Upsert(userID string, claims map[string]any) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.users[userID] = claims
}
