package oidcmodel

import (
	"net/url"

	"github.com/pkg/errors"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges a refresh token for a new access token.
	RefreshTokenGrant GrantType = "refresh_token"
)

// TokenRequest holds the form-encoded parameters of a token endpoint request.
type TokenRequest struct {
	GrantType    GrantType
	Code         string
	RedirectURI  string
	ClientID     string
	ClientSecret string
	CodeVerifier string
	RefreshToken string
	Scope        string

	// Authorization is the raw Authorization header value, if the transport
	// received one. Used for client_secret_basic authentication.
	Authorization string
}

// ParseTokenRequest decodes an application/x-www-form-urlencoded token
// request body.
func ParseTokenRequest(rawBody string) (*TokenRequest, error) {
	params, err := url.ParseQuery(rawBody)
	if err != nil {
		return nil, errors.Wrap(err, "[ParseTokenRequest] malformed body")
	}

	return &TokenRequest{
		GrantType:    GrantType(params.Get("grant_type")),
		Code:         params.Get("code"),
		RedirectURI:  params.Get("redirect_uri"),
		ClientID:     params.Get("client_id"),
		ClientSecret: params.Get("client_secret"),
		CodeVerifier: params.Get("code_verifier"),
		RefreshToken: params.Get("refresh_token"),
		Scope:        params.Get("scope"),
	}, nil
}

// TokenResponse is the JSON body returned from the token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}
