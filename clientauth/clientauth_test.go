package clientauth_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idkit/go-oidc-provider/clientauth"
	"github.com/idkit/go-oidc-provider/clients"
	fakeclientrepo "github.com/idkit/go-oidc-provider/clients/fakerepo"
	"github.com/idkit/go-oidc-provider/oidcmodel"
)

const (
	testClientID     = "test-client-1"
	testClientSecret = "test-secret-1"
)

func setupAuthenticator(t *testing.T, client *clients.Client) *clientauth.Authenticator {
	t.Helper()

	repo := fakeclientrepo.NewFakeClientRepo()
	require.NoError(t, repo.Upsert(client))
	return clientauth.New(repo)
}

func basicAuthHeader(clientID, secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+secret))
}

func TestAuthenticate_ClientSecretPost(t *testing.T) {
	a := setupAuthenticator(t, &clients.Client{ID: testClientID, Secret: testClientSecret})

	client, err := a.Authenticate(&oidcmodel.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})

	require.NoError(t, err)
	require.Equal(t, testClientID, client.ID)
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	a := setupAuthenticator(t, &clients.Client{ID: testClientID, Secret: testClientSecret})

	_, err := a.Authenticate(&oidcmodel.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: "wrong",
	})

	require.ErrorIs(t, err, clientauth.ErrInvalidClientAuthentication)
}

func TestAuthenticate_ClientSecretBasic(t *testing.T) {
	a := setupAuthenticator(t, &clients.Client{
		ID:                      testClientID,
		Secret:                  testClientSecret,
		TokenEndpointAuthMethod: clients.AuthMethodClientSecretBasic,
	})

	client, err := a.Authenticate(&oidcmodel.TokenRequest{
		Authorization: basicAuthHeader(testClientID, testClientSecret),
	})

	require.NoError(t, err)
	require.Equal(t, testClientID, client.ID)
}

func TestAuthenticate_ConflictingIdentities(t *testing.T) {
	a := setupAuthenticator(t, &clients.Client{ID: testClientID, Secret: testClientSecret})

	_, err := a.Authenticate(&oidcmodel.TokenRequest{
		ClientID:      "someone-else",
		Authorization: basicAuthHeader(testClientID, testClientSecret),
	})

	require.ErrorIs(t, err, clientauth.ErrInvalidClientAuthentication)
}

func TestAuthenticate_UnknownClient(t *testing.T) {
	a := setupAuthenticator(t, &clients.Client{ID: testClientID, Secret: testClientSecret})

	_, err := a.Authenticate(&oidcmodel.TokenRequest{
		ClientID:     "nobody",
		ClientSecret: testClientSecret,
	})

	require.ErrorIs(t, err, clientauth.ErrInvalidClientAuthentication)
}

func TestAuthenticate_PublicClient(t *testing.T) {
	a := setupAuthenticator(t, &clients.Client{
		ID:                      testClientID,
		TokenEndpointAuthMethod: clients.AuthMethodNone,
	})

	t.Run("no secret", func(t *testing.T) {
		client, err := a.Authenticate(&oidcmodel.TokenRequest{ClientID: testClientID})
		require.NoError(t, err)
		require.True(t, client.IsPublic())
	})

	t.Run("secret presented", func(t *testing.T) {
		_, err := a.Authenticate(&oidcmodel.TokenRequest{
			ClientID:     testClientID,
			ClientSecret: "should-not-be-here",
		})
		require.ErrorIs(t, err, clientauth.ErrInvalidClientAuthentication)
	})
}

func TestAuthenticate_HashedSecret(t *testing.T) {
	hash, err := clients.HashSecret(testClientSecret)
	require.NoError(t, err)

	a := setupAuthenticator(t, &clients.Client{ID: testClientID, SecretHash: hash})

	_, err = a.Authenticate(&oidcmodel.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	require.NoError(t, err)

	_, err = a.Authenticate(&oidcmodel.TokenRequest{
		ClientID:     testClientID,
		ClientSecret: "wrong",
	})
	require.ErrorIs(t, err, clientauth.ErrInvalidClientAuthentication)
}
