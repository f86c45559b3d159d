package oidcmodel

import (
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// AuthorizationResponse is the parameter set returned from the authorization
// endpoint, before it is encoded onto the client's redirect URI.
type AuthorizationResponse struct {
	Code        string
	AccessToken string
	TokenType   string
	ExpiresIn   int64
	IDToken     string
	State       string
}

// ToValues renders the response parameters in wire form. Zero-valued fields
// are omitted.
func (r *AuthorizationResponse) ToValues() url.Values {
	params := url.Values{}
	if r.Code != "" {
		params.Set("code", r.Code)
	}
	if r.AccessToken != "" {
		params.Set("access_token", r.AccessToken)
		params.Set("token_type", r.TokenType)
		params.Set("expires_in", strconv.FormatInt(r.ExpiresIn, 10))
	}
	if r.IDToken != "" {
		params.Set("id_token", r.IDToken)
	}
	if r.State != "" {
		params.Set("state", r.State)
	}
	return params
}

// EncodeToRedirectURI places the response parameters on the redirect URI, in
// the fragment or the query string.
func (r *AuthorizationResponse) EncodeToRedirectURI(redirectURI string, fragment bool) (string, error) {
	target, err := url.Parse(redirectURI)
	if err != nil {
		return "", errors.Wrap(err, "[EncodeToRedirectURI] invalid redirect URI")
	}

	encoded := r.ToValues().Encode()
	if fragment {
		target.Fragment = encoded
		// Fragment is carried verbatim; RawFragment keeps the encoding.
		target.RawFragment = encoded
	} else {
		query := target.Query()
		for key, values := range r.ToValues() {
			for _, v := range values {
				query.Set(key, v)
			}
		}
		target.RawQuery = query.Encode()
	}
	return target.String(), nil
}
