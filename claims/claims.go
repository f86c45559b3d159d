// Package claims merges scope-implied claims with explicitly requested
// claims and resolves them against the user claims store.
package claims

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/userinfo"
)

// ErrConflictingSubValues is returned when the claims request pins `sub` to
// two different values at different claim locations.
var ErrConflictingSubValues = errors.New("different sub values requested")

// scopeClaims is the standard mapping from scope values to the claims they
// imply (OIDC Core 5.4).
var scopeClaims = map[string][]string{
	"profile": {
		"name", "family_name", "given_name", "middle_name", "nickname",
		"preferred_username", "profile", "picture", "website", "gender",
		"birthdate", "zoneinfo", "locale", "updated_at",
	},
	"email":   {"email", "email_verified"},
	"address": {"address"},
	"phone":   {"phone_number", "phone_number_verified"},
}

// ClaimsForScope returns the claim names implied by a scope set.
func ClaimsForScope(scope []string) []string {
	var names []string
	for _, s := range scope {
		names = append(names, scopeClaims[s]...)
	}
	return names
}

// Resolver assembles disclosed claim sets for the ID Token and userinfo
// locations, resolving each claim name against the user claims store.
type Resolver struct {
	userinfo userinfo.Store
}

// NewResolver creates a resolver over the given user claims store.
func NewResolver(store userinfo.Store) *Resolver {
	return &Resolver{userinfo: store}
}

// ForUserinfo resolves the union of scope-implied claims and the claims
// explicitly requested for the userinfo location.
func (r *Resolver) ForUserinfo(userID string, scope []string, req *oidcmodel.ClaimsRequest) (map[string]any, error) {
	names := ClaimsForScope(scope)
	for name := range req.ForLocation(oidcmodel.ClaimsLocationUserinfo) {
		names = append(names, name)
	}
	return r.resolve(userID, names)
}

// ForIDToken resolves the claims explicitly requested for the id_token
// location. Scope-implied claims are not folded in here; the provider does
// that only when no userinfo-capable token is issued.
func (r *Resolver) ForIDToken(userID string, req *oidcmodel.ClaimsRequest) (map[string]any, error) {
	var names []string
	for name := range req.ForLocation(oidcmodel.ClaimsLocationIDToken) {
		names = append(names, name)
	}
	return r.resolve(userID, names)
}

// ForFoldedIDToken resolves the full claim set an ID Token must carry when
// the flow issues no access token: the scope-implied claims plus the claims
// requested at either location, since the userinfo endpoint is unreachable
// without an access token.
func (r *Resolver) ForFoldedIDToken(userID string, scope []string, req *oidcmodel.ClaimsRequest) (map[string]any, error) {
	names := ClaimsForScope(scope)
	for name := range req.ForLocation(oidcmodel.ClaimsLocationUserinfo) {
		names = append(names, name)
	}
	for name := range req.ForLocation(oidcmodel.ClaimsLocationIDToken) {
		names = append(names, name)
	}
	return r.resolve(userID, names)
}

func (r *Resolver) resolve(userID string, names []string) (map[string]any, error) {
	if len(names) == 0 {
		return map[string]any{}, nil
	}

	userClaims, err := r.userinfo.GetClaims(userID)
	if err != nil {
		return nil, errors.Wrap(err, "[Resolver] user claims lookup")
	}

	resolved := make(map[string]any, len(names))
	for _, name := range names {
		if name == "sub" {
			// sub is bound to the subject identifier, never to a stored
			// attribute.
			continue
		}
		if value, ok := userClaims[name]; ok {
			resolved[name] = value
		}
	}
	return resolved, nil
}

// RequestedSub extracts the explicit `sub` value constraint from a claims
// request. It fails with ErrConflictingSubValues when the id_token and
// userinfo locations pin sub to different values.
func RequestedSub(req *oidcmodel.ClaimsRequest) (string, error) {
	idTokenSub, hasIDTokenSub := req.RequestedValue(oidcmodel.ClaimsLocationIDToken, "sub")
	userinfoSub, hasUserinfoSub := req.RequestedValue(oidcmodel.ClaimsLocationUserinfo, "sub")

	if hasIDTokenSub && hasUserinfoSub && fmt.Sprint(idTokenSub) != fmt.Sprint(userinfoSub) {
		return "", ErrConflictingSubValues
	}
	if hasIDTokenSub {
		return fmt.Sprint(idTokenSub), nil
	}
	if hasUserinfoSub {
		return fmt.Sprint(userinfoSub), nil
	}
	return "", nil
}
