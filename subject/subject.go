// Package subject derives subject identifiers: the pseudonymous user
// identifiers disclosed to relying parties in place of local user ids.
package subject

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/pkg/errors"
)

// Type is a client's registered subject identifier type.
type Type string

const (
	// TypePublic yields the same subject identifier for a user towards every
	// client.
	TypePublic Type = "public"

	// TypePairwise yields a different subject identifier per sector, so
	// clients in different sectors cannot correlate users.
	TypePairwise Type = "pairwise"
)

// ErrUnsupportedSubjectType is returned for subject types other than public
// and pairwise.
var ErrUnsupportedSubjectType = errors.New("unsupported subject type")

// Factory derives subject identifiers for users. Implementations must be
// deterministic: the same inputs always yield the same identifier.
type Factory interface {
	// Public derives the globally shared subject identifier for a user.
	Public(userID string) string

	// Pairwise derives the per-sector subject identifier for a user.
	Pairwise(sectorIdentifier, userID string) string
}

// HashBasedFactory derives subject identifiers as salted SHA-256 digests.
// The salt keys the derivation: identifiers are stable for the same
// (sector, user, salt) triple and non-invertible without it.
type HashBasedFactory struct {
	salt string
}

var _ Factory = (*HashBasedFactory)(nil)

// NewHashBasedFactory creates a factory keyed with the given salt.
func NewHashBasedFactory(salt string) *HashBasedFactory {
	return &HashBasedFactory{salt: salt}
}

func (f *HashBasedFactory) Public(userID string) string {
	return f.hash(userID)
}

func (f *HashBasedFactory) Pairwise(sectorIdentifier, userID string) string {
	return f.hash(sectorIdentifier + userID)
}

func (f *HashBasedFactory) hash(value string) string {
	digest := sha256.Sum256([]byte(value + f.salt))
	return hex.EncodeToString(digest[:])
}
