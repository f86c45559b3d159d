package provider

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/clients"
	"github.com/idkit/go-oidc-provider/oidcmodel"
)

// HandleTokenRequest processes a raw token endpoint request. The client is
// authenticated first; authentication failures surface as
// clientauth.ErrInvalidClientAuthentication so the transport can answer 401.
// Grant failures surface as *InvalidTokenRequest.
func (p *Provider) HandleTokenRequest(ctx context.Context, rawBody, authorization string, extraIDTokenClaims ExtraClaims) (*oidcmodel.TokenResponse, error) {
	req, err := oidcmodel.ParseTokenRequest(rawBody)
	if err != nil {
		return nil, newInvalidTokenRequest("malformed token request", OAuthErrorInvalidRequest, err)
	}
	req.Authorization = authorization

	client, err := p.clientAuth.Authenticate(req)
	if err != nil {
		return nil, err
	}

	switch req.GrantType {
	case oidcmodel.AuthorizationCodeGrant:
		return p.exchangeAuthorizationCode(ctx, req, client, extraIDTokenClaims)
	case oidcmodel.RefreshTokenGrant:
		return p.refreshAccessToken(ctx, req, client)
	default:
		return nil, newInvalidTokenRequest("grant_type not supported", OAuthErrorUnsupportedGrantType, nil)
	}
}

func (p *Provider) exchangeAuthorizationCode(ctx context.Context, req *oidcmodel.TokenRequest, client *clients.Client, extra ExtraClaims) (*oidcmodel.TokenResponse, error) {
	if req.Code == "" {
		return nil, newInvalidTokenRequest("code is required", OAuthErrorInvalidRequest, nil)
	}

	code, err := p.authzState.ConsumeAuthorizationCode(ctx, req.Code)
	if err != nil {
		return nil, newInvalidTokenRequest("invalid authorization code", OAuthErrorInvalidGrant, err)
	}

	if code.AuthRequest.ClientID != client.ID {
		return nil, newInvalidTokenRequest("code was issued to another client", OAuthErrorInvalidGrant, nil)
	}
	if req.RedirectURI != code.AuthRequest.RedirectURI {
		return nil, newInvalidTokenRequest("redirect_uri does not match the authorization request", OAuthErrorInvalidGrant, nil)
	}
	if err := checkCodeChallenge(code.AuthRequest, req.CodeVerifier); err != nil {
		return nil, newInvalidTokenRequest(err.Error(), OAuthErrorInvalidGrant, err)
	}

	accessToken, err := p.authzState.CreateAccessToken(ctx, code.AuthRequest, code.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.HandleTokenRequest] access token")
	}

	userID, err := p.authzState.GetUserIDForSubjectIdentifier(ctx, code.Subject)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.HandleTokenRequest] subject lookup")
	}

	userClaims, err := p.resolver.ForIDToken(userID, code.AuthRequest.Claims)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.HandleTokenRequest] id token claims")
	}

	idToken, err := p.mintIDToken(idTokenParams{
		sub:         code.Subject,
		clientID:    client.ID,
		nonce:       code.AuthRequest.Nonce,
		accessToken: accessToken.Value,
		userClaims:  userClaims,
		extra:       extraClaimsFor(extra, userID, client.ID),
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.HandleTokenRequest] id token")
	}

	resp := &oidcmodel.TokenResponse{
		AccessToken: accessToken.Value,
		TokenType:   accessToken.TokenType,
		ExpiresIn:   int64(p.authzState.AccessTokenLifetime().Seconds()),
		IDToken:     idToken,
	}

	if p.authzState.SupportsRefreshTokens() {
		refreshToken, err := p.authzState.CreateRefreshToken(ctx, accessToken)
		if err != nil {
			return nil, errors.Wrap(err, "[Provider.HandleTokenRequest] refresh token")
		}
		resp.RefreshToken = refreshToken.Value
	}

	return resp, nil
}

func (p *Provider) refreshAccessToken(ctx context.Context, req *oidcmodel.TokenRequest, client *clients.Client) (*oidcmodel.TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, newInvalidTokenRequest("refresh_token is required", OAuthErrorInvalidRequest, nil)
	}

	refreshToken, err := p.authzState.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, newInvalidTokenRequest("invalid refresh token", OAuthErrorInvalidGrant, err)
	}
	if refreshToken.ClientID != client.ID {
		return nil, newInvalidTokenRequest("refresh token was issued to another client", OAuthErrorInvalidGrant, nil)
	}
	if req.Scope != "" && !scopeSubset(req.Scope, refreshToken.Scope) {
		return nil, newInvalidTokenRequest("requested scope exceeds the granted scope", OAuthErrorInvalidScope, nil)
	}

	accessToken, err := p.authzState.CreateAccessTokenFromRefresh(ctx, refreshToken, req.Scope)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.HandleTokenRequest] access token from refresh")
	}

	resp := &oidcmodel.TokenResponse{
		AccessToken: accessToken.Value,
		TokenType:   accessToken.TokenType,
		ExpiresIn:   int64(p.authzState.AccessTokenLifetime().Seconds()),
		Scope:       accessToken.Scope,
	}

	if p.authzState.ShouldRotate(refreshToken) {
		rotated, err := p.authzState.RotateRefreshToken(ctx, refreshToken, accessToken)
		if err != nil {
			return nil, errors.Wrap(err, "[Provider.HandleTokenRequest] rotate refresh token")
		}
		resp.RefreshToken = rotated.Value
	}

	return resp, nil
}

// scopeSubset reports whether every value in the requested space-separated
// scope string was part of the granted one.
func scopeSubset(requested, granted string) bool {
	have := make(map[string]struct{})
	for _, s := range strings.Fields(granted) {
		have[s] = struct{}{}
	}
	for _, s := range strings.Fields(requested) {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// checkCodeChallenge verifies a PKCE code_verifier against the challenge
// bound to the authorization request, when one was supplied.
func checkCodeChallenge(authReq *oidcmodel.AuthenticationRequest, verifier string) error {
	if authReq.CodeChallenge == "" {
		return nil
	}
	if verifier == "" {
		return errors.New("code_verifier is required")
	}

	var derived string
	switch authReq.CodeChallengeMethod {
	case "S256":
		digest := sha256.Sum256([]byte(verifier))
		derived = base64.RawURLEncoding.EncodeToString(digest[:])
	case "plain", "":
		derived = verifier
	default:
		return errors.Errorf("unsupported code_challenge_method %q", authReq.CodeChallengeMethod)
	}

	if subtle.ConstantTimeCompare([]byte(derived), []byte(authReq.CodeChallenge)) != 1 {
		return errors.New("code_verifier does not match code_challenge")
	}
	return nil
}
