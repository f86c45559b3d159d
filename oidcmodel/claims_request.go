package oidcmodel

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ClaimsLocation identifies where a requested claim should be delivered.
type ClaimsLocation string

const (
	// ClaimsLocationIDToken requests delivery inside the signed ID Token.
	ClaimsLocationIDToken ClaimsLocation = "id_token"

	// ClaimsLocationUserinfo requests delivery in the userinfo response.
	ClaimsLocationUserinfo ClaimsLocation = "userinfo"
)

// ClaimEntry carries the per-claim constraints of a claims request. A nil
// entry ("claim": null on the wire) means the claim is requested in its
// default, voluntary form.
type ClaimEntry struct {
	Essential bool  `json:"essential,omitempty"`
	Value     any   `json:"value,omitempty"`
	Values    []any `json:"values,omitempty"`
}

// ClaimsRequest is the parsed `claims` authentication request parameter
// (OIDC Core 5.5): claims requested separately for the ID Token and the
// userinfo response.
type ClaimsRequest struct {
	IDToken  map[string]*ClaimEntry `json:"id_token,omitempty"`
	Userinfo map[string]*ClaimEntry `json:"userinfo,omitempty"`
}

// ParseClaimsRequest decodes the JSON value of the `claims` parameter.
func ParseClaimsRequest(raw string) (*ClaimsRequest, error) {
	var req ClaimsRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, errors.Wrap(err, "invalid claims request")
	}
	return &req, nil
}

// ForLocation returns the claim entries requested for the given location.
func (c *ClaimsRequest) ForLocation(loc ClaimsLocation) map[string]*ClaimEntry {
	if c == nil {
		return nil
	}
	switch loc {
	case ClaimsLocationIDToken:
		return c.IDToken
	case ClaimsLocationUserinfo:
		return c.Userinfo
	}
	return nil
}

// RequestedValue returns the explicit `value` constraint for a claim at the
// given location, if one was requested.
func (c *ClaimsRequest) RequestedValue(loc ClaimsLocation, claim string) (any, bool) {
	entry, ok := c.ForLocation(loc)[claim]
	if !ok || entry == nil || entry.Value == nil {
		return nil, false
	}
	return entry.Value, true
}

// String renders the claims request back to its JSON wire form.
func (c *ClaimsRequest) String() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return string(data)
}
