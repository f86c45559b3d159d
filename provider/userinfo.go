package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// HandleUserinfoRequest processes a userinfo request. The bearer access
// token is taken from the Authorization header when present, otherwise from
// the access_token form or query parameter. A missing token is a
// *BearerTokenError; an invalid or expired one is an
// *InvalidUserinfoRequest.
func (p *Provider) HandleUserinfoRequest(ctx context.Context, rawParams, authorization string) (map[string]any, error) {
	tokenValue, err := extractBearerToken(rawParams, authorization)
	if err != nil {
		return nil, err
	}

	accessToken, err := p.authzState.GetAccessToken(ctx, tokenValue)
	if err != nil {
		return nil, &InvalidUserinfoRequest{Msg: "invalid access token", cause: err}
	}

	userID, err := p.authzState.GetUserIDForSubjectIdentifier(ctx, accessToken.Subject)
	if err != nil {
		return nil, &InvalidUserinfoRequest{Msg: "no user for access token", cause: err}
	}

	userClaims, err := p.resolver.ForUserinfo(userID, strings.Fields(accessToken.Scope), accessToken.ClaimsRequest)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider.HandleUserinfoRequest] resolve claims")
	}

	response := make(map[string]any, len(userClaims)+1)
	for name, value := range userClaims {
		response[name] = value
	}
	response["sub"] = accessToken.Subject

	return response, nil
}

func extractBearerToken(rawParams, authorization string) (string, error) {
	if authorization != "" {
		const prefix = "Bearer "
		if !strings.HasPrefix(authorization, prefix) {
			return "", &BearerTokenError{Msg: "authorization header is not a bearer token"}
		}
		return strings.TrimPrefix(authorization, prefix), nil
	}

	params, err := url.ParseQuery(rawParams)
	if err != nil {
		return "", &BearerTokenError{Msg: "malformed request parameters"}
	}
	if token := params.Get("access_token"); token != "" {
		return token, nil
	}
	return "", &BearerTokenError{Msg: "no access token provided"}
}
