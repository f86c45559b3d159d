package provider

import (
	"fmt"
	"slices"

	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/oidcmodel"
)

// RequestValidator checks one aspect of a parsed authentication request.
// Validators run in registration order and the first failure aborts parsing.
type RequestValidator interface {
	Validate(req *oidcmodel.AuthenticationRequest) error
}

// RequestValidatorFunc adapts a function to the RequestValidator interface.
type RequestValidatorFunc func(req *oidcmodel.AuthenticationRequest) error

// Validate implements RequestValidator.
func (f RequestValidatorFunc) Validate(req *oidcmodel.AuthenticationRequest) error {
	return f(req)
}

// AddRequestValidator appends a custom validator to the chain, after the
// built-in ones.
func (p *Provider) AddRequestValidator(v RequestValidator) {
	p.requestValidators = append(p.requestValidators, v)
}

// ParseAuthenticationRequest parses and fully validates a raw authorization
// request query string. A failure is reported as *InvalidAuthenticationRequest
// wrapping the underlying cause.
func (p *Provider) ParseAuthenticationRequest(rawQuery string) (*oidcmodel.AuthenticationRequest, error) {
	req, err := oidcmodel.ParseAuthenticationRequest(rawQuery)
	if err != nil {
		return nil, newInvalidAuthenticationRequest("malformed authentication request", oauthErrorForCause(err), err)
	}

	for _, v := range p.requestValidators {
		if err := v.Validate(req); err != nil {
			return nil, newInvalidAuthenticationRequest(err.Error(), oauthErrorForCause(err), err)
		}
	}

	return req, nil
}

// oauthErrorForCause maps validation causes onto the OAuth error codes the
// redirect response must carry.
func oauthErrorForCause(err error) string {
	switch {
	case errors.Is(err, oidcmodel.ErrUnknownScope):
		return OAuthErrorInvalidScope
	case errors.Is(err, errUnregisteredRedirectURI):
		return OAuthErrorUnauthorizedClient
	case errors.Is(err, errDisallowedResponseType):
		return OAuthErrorUnsupportedResponseType
	default:
		return OAuthErrorInvalidRequest
	}
}

var (
	errUnregisteredRedirectURI = errors.New("redirect_uri is not registered for client")
	errDisallowedResponseType  = errors.New("response_type is not registered for client")
)

func (p *Provider) validateOpenIDScope(req *oidcmodel.AuthenticationRequest) error {
	if !slices.Contains(req.Scope, "openid") {
		return errors.Wrap(oidcmodel.ErrMissingRequiredValue, "openid scope is required")
	}
	return nil
}

func (p *Provider) validateKnownScopes(req *oidcmodel.AuthenticationRequest) error {
	for _, scope := range req.Scope {
		if _, ok := p.knownScopes[scope]; !ok {
			return errors.Wrapf(oidcmodel.ErrUnknownScope, "scope %q", scope)
		}
	}
	return nil
}

func (p *Provider) validateClientRegistration(req *oidcmodel.AuthenticationRequest) error {
	client, err := p.clients.Get(req.ClientID)
	if err != nil {
		return errors.Wrapf(err, "unknown client_id %q", req.ClientID)
	}
	if !client.HasRedirectURI(req.RedirectURI) {
		return errors.Wrapf(errUnregisteredRedirectURI, "redirect_uri %q", req.RedirectURI)
	}
	if !client.AllowsResponseType(req.ResponseType) {
		return errors.Wrapf(errDisallowedResponseType, "response_type %q", req.ResponseType.String())
	}
	return nil
}

// validateUserinfoClaimsDeliverable rejects requests that ask for claims at
// the userinfo endpoint when the flow never issues an access token usable
// there.
func (p *Provider) validateUserinfoClaimsDeliverable(req *oidcmodel.AuthenticationRequest) error {
	if req.Claims == nil || len(req.Claims.Userinfo) == 0 {
		return nil
	}
	if req.ResponseType.Equals(oidcmodel.NewResponseTypeSet("id_token")) {
		return fmt.Errorf("claims requested at the userinfo endpoint but response_type %q issues no access token", req.ResponseType.String())
	}
	return nil
}
