// Package provider implements the OpenID Connect provider engine: request
// validation, the authorize/token/userinfo protocol flows, response encoding
// policy, and the translation of internal error kinds into protocol-visible
// errors.
package provider

import (
	"time"

	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/authzstate"
	"github.com/idkit/go-oidc-provider/claims"
	"github.com/idkit/go-oidc-provider/clientauth"
	"github.com/idkit/go-oidc-provider/clients"
	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/signing"
	"github.com/idkit/go-oidc-provider/userinfo"
)

const defaultIDTokenLifetime = time.Hour

// defaultScopes are the scope values recognized out of the box.
var defaultScopes = []string{"openid", "profile", "email", "address", "phone", "offline_access"}

// Metadata is the provider's static configuration document. Issuer is
// required; Extra fields are served verbatim in the discovery document.
type Metadata struct {
	Issuer string
	Extra  map[string]any
}

// Document renders the metadata as the discovery document body.
func (m Metadata) Document() map[string]any {
	doc := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		doc[k] = v
	}
	if m.Issuer != "" {
		doc["issuer"] = m.Issuer
	}
	return doc
}

// Provider orchestrates the authorization state, subject identifiers, claims
// resolution and signing into the three protocol flows.
type Provider struct {
	signer     signing.Signer
	metadata   Metadata
	authzState *authzstate.AuthorizationState
	clients    clients.Registry
	clientAuth *clientauth.Authenticator
	resolver   *claims.Resolver

	requestValidators []RequestValidator

	idTokenLifetime time.Duration
	tokenHashAlg    string
	knownScopes     map[string]struct{}
	nowFunc         func() time.Time
}

// Option modifies a Provider instance.
type Option func(*Provider)

// WithIDTokenLifetime sets the validity window of issued ID Tokens.
func WithIDTokenLifetime(d time.Duration) Option {
	return func(p *Provider) { p.idTokenLifetime = d }
}

// WithTokenHashAlg overrides the algorithm used for c_hash/at_hash
// computation. The default is the ID Token signing algorithm, which selects
// the matching digest.
func WithTokenHashAlg(alg string) Option {
	return func(p *Provider) { p.tokenHashAlg = alg }
}

// WithExtraScopes registers additional recognized scope values beyond the
// standard ones.
func WithExtraScopes(scopes ...string) Option {
	return func(p *Provider) {
		for _, s := range scopes {
			p.knownScopes[s] = struct{}{}
		}
	}
}

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(p *Provider) { p.nowFunc = now }
}

// New creates a Provider. The signer, registry and userinfo store are the
// engine's external collaborators; the authorization state is the injected
// mutable store it owns the semantics of.
func New(
	signer signing.Signer,
	metadata Metadata,
	state *authzstate.AuthorizationState,
	registry clients.Registry,
	userClaims userinfo.Store,
	options ...Option,
) (*Provider, error) {
	if signer == nil {
		return nil, errors.New("[provider.New] signer is required")
	}
	if metadata.Issuer == "" {
		return nil, errors.New("[provider.New] issuer is required")
	}
	if state == nil {
		return nil, errors.New("[provider.New] authorization state is required")
	}
	if registry == nil {
		return nil, errors.New("[provider.New] client registry is required")
	}

	p := &Provider{
		signer:          signer,
		metadata:        metadata,
		authzState:      state,
		clients:         registry,
		clientAuth:      clientauth.New(registry),
		resolver:        claims.NewResolver(userClaims),
		idTokenLifetime: defaultIDTokenLifetime,
		knownScopes:     make(map[string]struct{}, len(defaultScopes)),
		nowFunc:         time.Now,
	}
	for _, s := range defaultScopes {
		p.knownScopes[s] = struct{}{}
	}

	for _, opt := range options {
		opt(p)
	}

	if p.tokenHashAlg == "" {
		p.tokenHashAlg = signer.GetSigningMethod().Alg()
	}

	p.requestValidators = []RequestValidator{
		RequestValidatorFunc(p.validateOpenIDScope),
		RequestValidatorFunc(p.validateKnownScopes),
		RequestValidatorFunc(p.validateClientRegistration),
		RequestValidatorFunc(p.validateUserinfoClaimsDeliverable),
	}

	return p, nil
}

// AuthzState exposes the provider's authorization state, e.g. for
// out-of-band subject identifier resolution.
func (p *Provider) AuthzState() *authzstate.AuthorizationState {
	return p.authzState
}

// IDTokenLifetime returns the configured ID Token validity window.
func (p *Provider) IDTokenLifetime() time.Duration {
	return p.idTokenLifetime
}

// ProviderConfiguration returns the static provider metadata document,
// verbatim as configured.
func (p *Provider) ProviderConfiguration() map[string]any {
	return p.metadata.Document()
}

// Issuer returns the configured issuer identifier.
func (p *Provider) Issuer() string {
	return p.metadata.Issuer
}

// JWKS exposes the public half of the signing key in standard key set form.
// Only asymmetric signers publish keys.
func (p *Provider) JWKS() (*signing.JWKS, error) {
	keyed, ok := p.signer.(*signing.KeyPairSigner)
	if !ok {
		return nil, errors.New("[Provider.JWKS] signer has no publishable key")
	}
	return keyed.GetJWKS()
}

// TrustedRedirectURI reports whether a redirect URI is registered for the
// client, i.e. whether an error response may be sent there.
func (p *Provider) TrustedRedirectURI(clientID, redirectURI string) bool {
	client, err := p.clients.Get(clientID)
	return err == nil && client.HasRedirectURI(redirectURI)
}

// ShouldFragmentEncode decides the response encoding for an authentication
// request: an explicit response_mode always wins, otherwise any implicit or
// hybrid response_type requires fragment encoding and the pure code flow
// uses the query string.
func ShouldFragmentEncode(req *oidcmodel.AuthenticationRequest) bool {
	switch req.ResponseMode {
	case oidcmodel.FragmentResponseMode:
		return true
	case oidcmodel.QueryResponseMode:
		return false
	}
	return req.ResponseType.Contains(oidcmodel.ResponseTypeIDToken) ||
		req.ResponseType.Contains(oidcmodel.ResponseTypeToken)
}
