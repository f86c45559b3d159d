// Package clients models the relying-party registry. The registry is a
// read-only lookup service towards the provider core; management of its
// contents happens elsewhere.
package clients

import (
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/subject"
)

// TokenEndpointAuthMethod is a client's registered way of authenticating at
// the token endpoint.
type TokenEndpointAuthMethod string

const (
	// AuthMethodClientSecretPost carries the secret in the request body.
	AuthMethodClientSecretPost TokenEndpointAuthMethod = "client_secret_post"

	// AuthMethodClientSecretBasic carries the secret in the HTTP
	// Authorization header.
	AuthMethodClientSecretBasic TokenEndpointAuthMethod = "client_secret_basic"

	// AuthMethodNone is used by public clients without credentials.
	AuthMethodNone TokenEndpointAuthMethod = "none"
)

// Client is the registered metadata of one relying party. Instances are
// immutable for the lifetime of a request.
type Client struct {
	ID string `json:"id"`

	// Secret is the plaintext client credential. Absent for public clients.
	Secret string `json:"secret,omitempty"`

	// SecretHash is the bcrypt hash of the client credential, for registries
	// that do not keep plaintext secrets. When set it takes precedence over
	// Secret during verification.
	SecretHash string `json:"secretHash,omitempty"`

	RedirectURIs []string `json:"redirectURIs"`

	// ResponseTypes holds the registered response_type combinations, each an
	// unordered set.
	ResponseTypes []oidcmodel.ResponseTypeSet `json:"responseTypes"`

	SubjectType subject.Type `json:"subjectType"`

	TokenEndpointAuthMethod TokenEndpointAuthMethod `json:"tokenEndpointAuthMethod"`

	// SectorIdentifierURI optionally overrides the sector derived from the
	// redirect URI host for pairwise subject identifiers.
	SectorIdentifierURI string `json:"sectorIdentifierURI,omitempty"`
}

// HasRedirectURI reports whether the URI is in the client's registered set.
func (c *Client) HasRedirectURI(redirectURI string) bool {
	for _, uri := range c.RedirectURIs {
		if uri == redirectURI {
			return true
		}
	}
	return false
}

// AllowsResponseType reports whether the requested response_type combination
// matches one of the registered combinations, compared as sets.
func (c *Client) AllowsResponseType(requested oidcmodel.ResponseTypeSet) bool {
	for _, registered := range c.ResponseTypes {
		if registered.Equals(requested) {
			return true
		}
	}
	return false
}

// SectorIdentifier returns the sector used to scope pairwise subject
// identifiers: the registered sector identifier host when present, otherwise
// the host of the redirect URI in use.
func (c *Client) SectorIdentifier(redirectURI string) (string, error) {
	raw := c.SectorIdentifierURI
	if raw == "" {
		raw = redirectURI
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrap(err, "[SectorIdentifier] invalid URI")
	}
	return parsed.Hostname(), nil
}

// IsPublic reports whether the client authenticates without credentials.
func (c *Client) IsPublic() bool {
	return c.TokenEndpointAuthMethod == AuthMethodNone
}

// SubjectTypeOrDefault returns the registered subject identifier type,
// defaulting to public when the registration does not name one.
func (c *Client) SubjectTypeOrDefault() subject.Type {
	if c.SubjectType == "" {
		return subject.TypePublic
	}
	return c.SubjectType
}

// AuthMethod returns the registered authentication method, defaulting to
// client_secret_post when the registration does not name one.
func (c *Client) AuthMethod() TokenEndpointAuthMethod {
	if c.TokenEndpointAuthMethod == "" {
		return AuthMethodClientSecretPost
	}
	return c.TokenEndpointAuthMethod
}

// HashSecret hashes a client secret for at-rest storage in the registry.
func HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "[HashSecret] bcrypt")
	}
	return string(hash), nil
}

// CheckSecretHash verifies a presented secret against a bcrypt hash.
func CheckSecretHash(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
