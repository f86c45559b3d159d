package oidcmodel

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ResponseType is a single OAuth 2.0 response type value. An authentication
// request carries a space-separated set of these; the set (not the order)
// determines the flow.
type ResponseType string

const (
	// ResponseTypeCode requests an authorization code (code flow, or part of
	// a hybrid flow).
	ResponseTypeCode ResponseType = "code"

	// ResponseTypeIDToken requests an ID Token directly from the
	// authorization endpoint (implicit or hybrid flow).
	ResponseTypeIDToken ResponseType = "id_token"

	// ResponseTypeToken requests an access token directly from the
	// authorization endpoint (implicit or hybrid flow).
	ResponseTypeToken ResponseType = "token"
)

// ResponseModeType denotes how authorization response parameters are returned
// to the client.
type ResponseModeType string

const (
	// QueryResponseMode returns parameters in the URL query string.
	QueryResponseMode ResponseModeType = "query"

	// FragmentResponseMode returns parameters in the URL fragment.
	FragmentResponseMode ResponseModeType = "fragment"
)

// CodeMethodType represents the PKCE code challenge method.
type CodeMethodType string

const (
	CodeMethodTypeS256 CodeMethodType = "S256"
	CodeMethodTypeNone CodeMethodType = "plain"
)

// Primitive validation causes. These are wrapped into the provider's
// InvalidAuthenticationRequest so callers can reach them with errors.Is.
var (
	ErrMissingRequiredAttribute = errors.New("missing required attribute")
	ErrMissingRequiredValue     = errors.New("missing required value")
	ErrUnknownScope             = errors.New("unknown scope value")
)

// requiredAuthenticationParameters are the parameters every authentication
// request must carry per OIDC Core 3.1.2.1.
var requiredAuthenticationParameters = []string{"scope", "response_type", "client_id", "redirect_uri"}

// AuthenticationRequest is the validated parameter set of one authorization
// attempt. It is immutable once parsed; the provider snapshots it together
// with every code and token minted for it.
type AuthenticationRequest struct {
	Scope               []string         `json:"scope"`
	ResponseType        ResponseTypeSet  `json:"responseType"`
	ClientID            string           `json:"clientID"`
	RedirectURI         string           `json:"redirectURI"`
	State               string           `json:"state,omitempty"`
	Nonce               string           `json:"nonce,omitempty"`
	ResponseMode        ResponseModeType `json:"responseMode,omitempty"`
	Claims              *ClaimsRequest   `json:"claims,omitempty"`
	CodeChallenge       string           `json:"codeChallenge,omitempty"`
	CodeChallengeMethod CodeMethodType   `json:"codeChallengeMethod,omitempty"`
}

// ParseAuthenticationRequest decodes an application/x-www-form-urlencoded
// authentication request. Only syntactic checks happen here; client-aware
// validation belongs to the provider.
func ParseAuthenticationRequest(rawQuery string) (*AuthenticationRequest, error) {
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, errors.Wrap(err, "[ParseAuthenticationRequest] malformed query")
	}
	return AuthenticationRequestFromValues(params)
}

// AuthenticationRequestFromValues builds an AuthenticationRequest from
// already-decoded parameters.
func AuthenticationRequestFromValues(params url.Values) (*AuthenticationRequest, error) {
	for _, required := range requiredAuthenticationParameters {
		if params.Get(required) == "" {
			return nil, errors.Wrapf(ErrMissingRequiredAttribute, "%q", required)
		}
	}

	req := &AuthenticationRequest{
		Scope:               strings.Fields(params.Get("scope")),
		ResponseType:        NewResponseTypeSet(strings.Fields(params.Get("response_type"))...),
		ClientID:            params.Get("client_id"),
		RedirectURI:         params.Get("redirect_uri"),
		State:               params.Get("state"),
		Nonce:               params.Get("nonce"),
		ResponseMode:        ResponseModeType(params.Get("response_mode")),
		CodeChallenge:       params.Get("code_challenge"),
		CodeChallengeMethod: CodeMethodType(params.Get("code_challenge_method")),
	}

	if rawClaims := params.Get("claims"); rawClaims != "" {
		claims, err := ParseClaimsRequest(rawClaims)
		if err != nil {
			return nil, errors.Wrap(err, "[ParseAuthenticationRequest] claims parameter")
		}
		req.Claims = claims
	}

	return req, nil
}

// HasScope reports whether the request asked for the given scope value.
func (r *AuthenticationRequest) HasScope(scope string) bool {
	for _, s := range r.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// ScopeString returns the scope set as its space-separated wire form.
func (r *AuthenticationRequest) ScopeString() string {
	return strings.Join(r.Scope, " ")
}

// ToValues re-serializes the recognized parameters. Parsing followed by
// ToValues round-trips losslessly for valid requests.
func (r *AuthenticationRequest) ToValues() url.Values {
	params := url.Values{}
	params.Set("scope", r.ScopeString())
	params.Set("response_type", r.ResponseType.String())
	params.Set("client_id", r.ClientID)
	params.Set("redirect_uri", r.RedirectURI)
	if r.State != "" {
		params.Set("state", r.State)
	}
	if r.Nonce != "" {
		params.Set("nonce", r.Nonce)
	}
	if r.ResponseMode != "" {
		params.Set("response_mode", string(r.ResponseMode))
	}
	if r.Claims != nil {
		params.Set("claims", r.Claims.String())
	}
	if r.CodeChallenge != "" {
		params.Set("code_challenge", r.CodeChallenge)
	}
	if r.CodeChallengeMethod != "" {
		params.Set("code_challenge_method", string(r.CodeChallengeMethod))
	}
	return params
}

// ResponseTypeSet is an unordered response_type combination. "code id_token"
// and "id_token code" are the same set.
type ResponseTypeSet map[ResponseType]struct{}

// NewResponseTypeSet builds a set from individual response type values.
func NewResponseTypeSet(values ...string) ResponseTypeSet {
	set := make(ResponseTypeSet, len(values))
	for _, v := range values {
		set[ResponseType(v)] = struct{}{}
	}
	return set
}

// Contains reports set membership.
func (s ResponseTypeSet) Contains(rt ResponseType) bool {
	_, ok := s[rt]
	return ok
}

// Equals compares two sets for equality regardless of order.
func (s ResponseTypeSet) Equals(other ResponseTypeSet) bool {
	if len(s) != len(other) {
		return false
	}
	for rt := range s {
		if !other.Contains(rt) {
			return false
		}
	}
	return true
}

// String renders the set in canonical order (code, id_token, token), which is
// stable for logging and re-serialization.
func (s ResponseTypeSet) String() string {
	values := make([]string, 0, len(s))
	for rt := range s {
		values = append(values, string(rt))
	}
	sort.Slice(values, func(i, j int) bool {
		return responseTypeRank(values[i]) < responseTypeRank(values[j])
	})
	return strings.Join(values, " ")
}

// MarshalJSON serializes the set as its space-separated wire form, so
// persisted requests stay readable and order-independent.
func (s ResponseTypeSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the space-separated wire form.
func (s *ResponseTypeSet) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "[ResponseTypeSet.UnmarshalJSON]")
	}
	*s = NewResponseTypeSet(strings.Fields(raw)...)
	return nil
}

func responseTypeRank(v string) int {
	switch ResponseType(v) {
	case ResponseTypeCode:
		return 0
	case ResponseTypeIDToken:
		return 1
	case ResponseTypeToken:
		return 2
	}
	return 3
}
