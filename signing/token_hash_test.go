package signing_test

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/idkit/go-oidc-provider/signing"
)

func TestLeftHalfHash_SHA256(t *testing.T) {
	const value = "jHkWEdUXMU1BwAsC4vtUsZwnNvTIxEl0z9K3vx5KF0Y"

	digest := sha256.Sum256([]byte(value))
	want := base64.RawURLEncoding.EncodeToString(digest[:16])

	for _, alg := range []string{"RS256", "HS256", "ES256"} {
		got, err := signing.LeftHalfHash(alg, value)
		require.NoError(t, err)
		require.Equal(t, want, got, "alg %s", alg)
	}
}

func TestLeftHalfHash_DigestMatchesAlgSuffix(t *testing.T) {
	h256, err := signing.LeftHalfHash("RS256", "value")
	require.NoError(t, err)
	h384, err := signing.LeftHalfHash("RS384", "value")
	require.NoError(t, err)
	h512, err := signing.LeftHalfHash("RS512", "value")
	require.NoError(t, err)

	require.Len(t, mustDecode(t, h256), 16)
	require.Len(t, mustDecode(t, h384), 24)
	require.Len(t, mustDecode(t, h512), 32)
}

func TestLeftHalfHash_UnknownAlg(t *testing.T) {
	_, err := signing.LeftHalfHash("none", "value")
	require.Error(t, err)
}

func mustDecode(t *testing.T, s string) []byte {
	t.Helper()
	raw, err := base64.RawURLEncoding.DecodeString(s)
	require.NoError(t, err)
	return raw
}
