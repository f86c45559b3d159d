// Package clientauth verifies a client's presented credentials against the
// registry, using the client's registered token endpoint authentication
// method.
package clientauth

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/clients"
	"github.com/idkit/go-oidc-provider/oidcmodel"
)

// ErrInvalidClientAuthentication is the failure kind for missing, mismatched
// or method-inappropriate client credentials. It is surfaced distinctly from
// grant validation failures and never downgraded.
var ErrInvalidClientAuthentication = errors.New("invalid client authentication")

// Authenticator verifies token endpoint client credentials.
type Authenticator struct {
	registry clients.Registry
}

// New creates an Authenticator over the given registry.
func New(registry clients.Registry) *Authenticator {
	return &Authenticator{registry: registry}
}

// Authenticate resolves the client named in the request and verifies its
// credentials per the registered authentication method.
func (a *Authenticator) Authenticate(req *oidcmodel.TokenRequest) (*clients.Client, error) {
	clientID, presentedSecret, err := extractCredentials(req)
	if err != nil {
		return nil, err
	}
	if clientID == "" {
		return nil, errors.Wrap(ErrInvalidClientAuthentication, "no client_id")
	}

	client, err := a.registry.Get(clientID)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidClientAuthentication, "unknown client %q", clientID)
	}

	switch client.AuthMethod() {
	case clients.AuthMethodNone:
		if presentedSecret != "" {
			return nil, errors.Wrap(ErrInvalidClientAuthentication, "public client must not present a secret")
		}
		return client, nil

	case clients.AuthMethodClientSecretPost:
		if req.ClientSecret == "" {
			return nil, errors.Wrap(ErrInvalidClientAuthentication, "no client_secret in body")
		}
		return a.verifySecret(client, req.ClientSecret)

	case clients.AuthMethodClientSecretBasic:
		basicID, basicSecret, ok := parseBasicAuth(req.Authorization)
		if !ok {
			return nil, errors.Wrap(ErrInvalidClientAuthentication, "no basic auth header")
		}
		if basicID != clientID {
			return nil, errors.Wrap(ErrInvalidClientAuthentication, "client_id mismatch in basic auth")
		}
		return a.verifySecret(client, basicSecret)
	}

	return nil, errors.Wrapf(ErrInvalidClientAuthentication, "unsupported auth method %q", client.AuthMethod())
}

func (a *Authenticator) verifySecret(client *clients.Client, presented string) (*clients.Client, error) {
	if client.SecretHash != "" {
		if !clients.CheckSecretHash(presented, client.SecretHash) {
			return nil, errors.Wrap(ErrInvalidClientAuthentication, "secret mismatch")
		}
		return client, nil
	}

	if subtle.ConstantTimeCompare([]byte(client.Secret), []byte(presented)) != 1 {
		return nil, errors.Wrap(ErrInvalidClientAuthentication, "secret mismatch")
	}
	return client, nil
}

// extractCredentials determines the client identity from body parameters or
// the Authorization header. The header wins when both are present with the
// same id; differing ids are rejected.
func extractCredentials(req *oidcmodel.TokenRequest) (clientID, secret string, err error) {
	basicID, basicSecret, hasBasic := parseBasicAuth(req.Authorization)

	if hasBasic {
		if req.ClientID != "" && req.ClientID != basicID {
			return "", "", errors.Wrap(ErrInvalidClientAuthentication, "conflicting client identities")
		}
		return basicID, basicSecret, nil
	}
	return req.ClientID, req.ClientSecret, nil
}

func parseBasicAuth(header string) (clientID, secret string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", false
	}

	clientID, secret, ok = strings.Cut(string(decoded), ":")
	return clientID, secret, ok
}
