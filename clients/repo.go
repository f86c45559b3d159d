package clients

import "github.com/pkg/errors"

// ErrClientNotFound is returned when no client is registered under an id.
var ErrClientNotFound = errors.New("client not found")

// Registry is the read-only client lookup service the provider consumes.
type Registry interface {
	Get(clientID string) (*Client, error)
}

// Repo is the full registry contract, for backends that also manage
// registrations. The provider core only uses the Registry subset.
type Repo interface {
	Registry
	Upsert(client *Client) error
	Delete(clientID string) error
}
