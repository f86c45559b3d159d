package provider

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/authzstate"
	"github.com/idkit/go-oidc-provider/claims"
	"github.com/idkit/go-oidc-provider/clients"
	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/signing"
	"github.com/idkit/go-oidc-provider/subject"
)

// ExtraClaims supplies deployment-specific claims to merge into an issued
// ID Token, after all protocol claims.
type ExtraClaims interface {
	claimsFor(userID, clientID string) map[string]any
}

// StaticClaims is a fixed set of extra ID Token claims.
type StaticClaims map[string]any

func (s StaticClaims) claimsFor(string, string) map[string]any {
	return s
}

// ClaimsFunc computes extra ID Token claims per user and client.
type ClaimsFunc func(userID, clientID string) map[string]any

func (f ClaimsFunc) claimsFor(userID, clientID string) map[string]any {
	return f(userID, clientID)
}

// Authorize completes a validated authentication request for an
// authenticated end-user. It derives the subject identifier, enforces any
// `sub` value pinned by the claims request, and issues the artifacts the
// response_type calls for.
func (p *Provider) Authorize(ctx context.Context, req *oidcmodel.AuthenticationRequest, userID string, extra ExtraClaims) (*oidcmodel.AuthorizationResponse, error) {
	client, err := p.clients.Get(req.ClientID)
	if err != nil {
		return nil, errors.Wrapf(err, "[Provider.Authorize] client %q", req.ClientID)
	}

	sub, err := p.subjectIdentifier(ctx, client, req.RedirectURI, userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.Authorize] subject identifier")
	}

	if req.Claims != nil {
		requestedSub, err := claims.RequestedSub(req.Claims)
		if err != nil {
			return nil, &AuthorizationError{Msg: err.Error()}
		}
		if requestedSub != "" && requestedSub != sub {
			return nil, &AuthorizationError{Msg: "requested sub differs from matched user"}
		}
	}

	resp := &oidcmodel.AuthorizationResponse{State: req.State}

	if req.ResponseType.Contains(oidcmodel.ResponseTypeCode) {
		code, err := p.authzState.CreateAuthorizationCode(ctx, req, sub)
		if err != nil {
			return nil, errors.Wrap(err, "[Provider.Authorize] authorization code")
		}
		resp.Code = code.Value
	}

	var accessToken *authzstate.AccessToken
	if req.ResponseType.Contains(oidcmodel.ResponseTypeToken) {
		accessToken, err = p.authzState.CreateAccessToken(ctx, req, sub)
		if err != nil {
			return nil, errors.Wrap(err, "[Provider.Authorize] access token")
		}
		resp.AccessToken = accessToken.Value
		resp.TokenType = accessToken.TokenType
		resp.ExpiresIn = int64(p.authzState.AccessTokenLifetime().Seconds())
	}

	if req.ResponseType.Contains(oidcmodel.ResponseTypeIDToken) {
		userClaims, err := p.idTokenUserClaims(req, userID)
		if err != nil {
			return nil, errors.Wrap(err, "[Provider.Authorize] id token claims")
		}

		var accessTokenValue string
		if accessToken != nil {
			accessTokenValue = accessToken.Value
		}

		idToken, err := p.mintIDToken(idTokenParams{
			sub:         sub,
			clientID:    req.ClientID,
			nonce:       req.Nonce,
			code:        resp.Code,
			accessToken: accessTokenValue,
			userClaims:  userClaims,
			extra:       extraClaimsFor(extra, userID, req.ClientID),
		})
		if err != nil {
			return nil, errors.Wrap(err, "[Provider.Authorize] id token")
		}
		resp.IDToken = idToken
	}

	return resp, nil
}

// subjectIdentifier derives the client-facing subject for a user, resolving
// the sector identifier for pairwise clients.
func (p *Provider) subjectIdentifier(ctx context.Context, client *clients.Client, redirectURI, userID string) (string, error) {
	subjectType := client.SubjectTypeOrDefault()
	var sector string
	if subjectType == subject.TypePairwise {
		var err error
		sector, err = client.SectorIdentifier(redirectURI)
		if err != nil {
			return "", err
		}
	}
	return p.authzState.GetSubjectIdentifier(ctx, subjectType, userID, sector)
}

// idTokenUserClaims resolves the end-user claims to embed in the ID Token.
// When the flow issues no access token at all the userinfo endpoint is
// unreachable, so the scope-implied claims and the requested claims from
// both locations are folded into the ID Token instead.
func (p *Provider) idTokenUserClaims(req *oidcmodel.AuthenticationRequest, userID string) (map[string]any, error) {
	if req.ResponseType.Equals(oidcmodel.NewResponseTypeSet("id_token")) {
		return p.resolver.ForFoldedIDToken(userID, req.Scope, req.Claims)
	}
	return p.resolver.ForIDToken(userID, req.Claims)
}

type idTokenParams struct {
	sub         string
	clientID    string
	nonce       string
	code        string
	accessToken string
	userClaims  map[string]any
	extra       map[string]any
}

func (p *Provider) mintIDToken(params idTokenParams) (string, error) {
	now := p.nowFunc()
	tokenClaims := jwt.MapClaims{
		"iss": p.metadata.Issuer,
		"sub": params.sub,
		"aud": []string{params.clientID},
		"iat": now.Unix(),
		"exp": now.Add(p.idTokenLifetime).Unix(),
	}
	if params.nonce != "" {
		tokenClaims["nonce"] = params.nonce
	}
	if params.code != "" {
		hash, err := signing.LeftHalfHash(p.tokenHashAlg, params.code)
		if err != nil {
			return "", errors.Wrap(err, "[Provider.mintIDToken] c_hash")
		}
		tokenClaims["c_hash"] = hash
	}
	if params.accessToken != "" {
		hash, err := signing.LeftHalfHash(p.tokenHashAlg, params.accessToken)
		if err != nil {
			return "", errors.Wrap(err, "[Provider.mintIDToken] at_hash")
		}
		tokenClaims["at_hash"] = hash
	}
	for name, value := range params.userClaims {
		tokenClaims[name] = value
	}
	for name, value := range params.extra {
		tokenClaims[name] = value
	}

	return p.signer.Sign(tokenClaims)
}

func extraClaimsFor(extra ExtraClaims, userID, clientID string) map[string]any {
	if extra == nil {
		return nil
	}
	return extra.claimsFor(userID, clientID)
}
