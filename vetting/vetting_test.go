package vetting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idkit/go-oidc-provider/authzstate"
	"github.com/idkit/go-oidc-provider/clients"
	fakeclientrepo "github.com/idkit/go-oidc-provider/clients/fakerepo"
	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/provider"
	"github.com/idkit/go-oidc-provider/signing"
	"github.com/idkit/go-oidc-provider/subject"
	"github.com/idkit/go-oidc-provider/userinfo"
	"github.com/idkit/go-oidc-provider/vetting"
)

func TestParseQRData(t *testing.T) {
	data, err := vetting.ParseQRData(`1{"nonce": "some-nonce", "token": "some-token"}`)

	require.NoError(t, err)
	require.Equal(t, "some-nonce", data.Nonce)
	require.Equal(t, "some-token", data.Token)
}

func TestParseQRData_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		qrcode string
	}{
		{"empty", ""},
		{"unknown version", `2{"nonce": "n", "token": "t"}`},
		{"not json", "1this is not json"},
		{"missing nonce", `1{"token": "t"}`},
		{"missing token", `1{"nonce": "n"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vetting.ParseQRData(tt.qrcode)
			require.ErrorIs(t, err, vetting.ErrInvalidQRData)
		})
	}
}

func TestCreateAuthenticationResponse_GeneratesUserID(t *testing.T) {
	clientRepo := fakeclientrepo.NewFakeClientRepo()
	require.NoError(t, clientRepo.Upsert(&clients.Client{
		ID:            "test-client-1",
		Secret:        "test-secret-1",
		RedirectURIs:  []string{"https://client.example.com/redirect"},
		ResponseTypes: []oidcmodel.ResponseTypeSet{oidcmodel.NewResponseTypeSet("code")},
	}))

	p, err := provider.New(
		signing.NewHMACSigner("test-signing-secret"),
		provider.Metadata{Issuer: "https://provider.example.com"},
		authzstate.New(subject.NewHashBasedFactory("salt")),
		clientRepo,
		userinfo.NewInMemory(nil),
	)
	require.NoError(t, err)

	req, err := p.ParseAuthenticationRequest("scope=openid&response_type=code&client_id=test-client-1&redirect_uri=https%3A%2F%2Fclient.example.com%2Fredirect&nonce=some-nonce")
	require.NoError(t, err)

	resp1, err := vetting.CreateAuthenticationResponse(context.Background(), p, req, "", nil)
	require.NoError(t, err)
	require.NotEmpty(t, resp1.Code)

	// Two anonymous vettings must not collapse into one user.
	resp2, err := vetting.CreateAuthenticationResponse(context.Background(), p, req, "", nil)
	require.NoError(t, err)

	ctx := context.Background()
	code1, err := p.AuthzState().PeekAuthorizationCode(ctx, resp1.Code)
	require.NoError(t, err)
	code2, err := p.AuthzState().PeekAuthorizationCode(ctx, resp2.Code)
	require.NoError(t, err)
	require.NotEqual(t, code1.Subject, code2.Subject)
}
