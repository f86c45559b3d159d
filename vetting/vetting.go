// Package vetting holds the helpers for the QR-code based identity vetting
// flow: decoding scanned QR payloads and completing a pending authentication
// request once a user has been vetted.
package vetting

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/provider"
)

// ErrInvalidQRData is returned for QR payloads that cannot be decoded.
var ErrInvalidQRData = errors.New("invalid QR data")

// QRData is the decoded payload of a vetting QR code.
type QRData struct {
	Nonce string `json:"nonce"`
	Token string `json:"token"`
}

// ParseQRData decodes a scanned QR payload. The first byte is the format
// version, currently always "1", followed by a JSON document carrying the
// nonce of the pending authentication request and the opaque vetting token.
func ParseQRData(qrcode string) (*QRData, error) {
	if qrcode == "" {
		return nil, errors.Wrap(ErrInvalidQRData, "empty QR code")
	}
	if qrcode[0] != '1' {
		return nil, errors.Wrapf(ErrInvalidQRData, "unknown QR code version %q", qrcode[0])
	}

	var data QRData
	if err := json.Unmarshal([]byte(qrcode[1:]), &data); err != nil {
		return nil, errors.Wrap(ErrInvalidQRData, "malformed QR payload")
	}
	if data.Nonce == "" || data.Token == "" {
		return nil, errors.Wrap(ErrInvalidQRData, "QR payload missing nonce or token")
	}

	return &data, nil
}

// CreateAuthenticationResponse completes an authentication request for a
// vetted user. When no local user id exists yet a fresh one is generated.
func CreateAuthenticationResponse(ctx context.Context, p *provider.Provider, req *oidcmodel.AuthenticationRequest, userID string, extra provider.ExtraClaims) (*oidcmodel.AuthorizationResponse, error) {
	if userID == "" {
		userID = uuid.NewString()
	}

	resp, err := p.Authorize(ctx, req, userID, extra)
	if err != nil {
		return nil, errors.Wrap(err, "[CreateAuthenticationResponse] authorize")
	}
	return resp, nil
}
