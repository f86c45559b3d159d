package authzstate

import (
	"time"

	"github.com/idkit/go-oidc-provider/oidcmodel"
)

// AuthorizationCode is the stored metadata of one issued authorization code.
// The code is bound to the full authentication request snapshot so the token
// endpoint can enforce redirect URI and client bindings and recover the
// original scope and claims request.
type AuthorizationCode struct {
	Value       string                           `json:"value"`
	AuthRequest *oidcmodel.AuthenticationRequest `json:"authRequest"`
	Subject     string                           `json:"subject"`
	IssuedAt    time.Time                        `json:"issuedAt"`
	Expiry      time.Time                        `json:"expiry"`
}

// AccessToken is the stored metadata of one issued access token. The claims
// request is snapshotted at issuance; the userinfo endpoint resolves against
// this snapshot, never against a later request.
type AccessToken struct {
	Value         string                   `json:"value"`
	TokenType     string                   `json:"tokenType"`
	Subject       string                   `json:"subject"`
	ClientID      string                   `json:"clientId"`
	Scope         string                   `json:"scope"`
	ClaimsRequest *oidcmodel.ClaimsRequest `json:"claimsRequest,omitempty"`
	IssuedAt      time.Time                `json:"issuedAt"`
	Expiry        time.Time                `json:"expiry"`
}

// RefreshToken is the stored metadata of one issued refresh token, carrying
// enough of the original authorization to mint replacement access tokens.
type RefreshToken struct {
	Value         string                   `json:"value"`
	Subject       string                   `json:"subject"`
	ClientID      string                   `json:"clientId"`
	Scope         string                   `json:"scope"`
	ClaimsRequest *oidcmodel.ClaimsRequest `json:"claimsRequest,omitempty"`
	IssuedAt      time.Time                `json:"issuedAt"`
	Expiry        time.Time                `json:"expiry"`
}
