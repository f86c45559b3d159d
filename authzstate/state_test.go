package authzstate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/idkit/go-oidc-provider/authzstate"
	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/subject"
)

const (
	testUserID = "user-1"
	testSector = "client.example.com"
)

type stateFixture struct {
	state *authzstate.AuthorizationState
	now   time.Time
}

func setupState(t *testing.T, options ...authzstate.Option) *stateFixture {
	t.Helper()

	f := &stateFixture{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	nowFunc := func() time.Time { return f.now }

	f.state = authzstate.New(
		subject.NewHashBasedFactory("test-salt"),
		append([]authzstate.Option{authzstate.WithNowFunc(nowFunc)}, options...)...,
	)
	return f
}

func testAuthRequest() *oidcmodel.AuthenticationRequest {
	return &oidcmodel.AuthenticationRequest{
		Scope:        []string{"openid"},
		ResponseType: oidcmodel.NewResponseTypeSet("code"),
		ClientID:     "test-client-1",
		RedirectURI:  "https://client.example.com/redirect",
		Nonce:        "random-nonce-value",
	}
}

func TestGetSubjectIdentifier_PublicIsDeterministic(t *testing.T) {
	f := setupState(t)
	ctx := context.Background()

	sub1, err := f.state.GetSubjectIdentifier(ctx, subject.TypePublic, testUserID, "")
	require.NoError(t, err)
	sub2, err := f.state.GetSubjectIdentifier(ctx, subject.TypePublic, testUserID, "")
	require.NoError(t, err)

	require.Equal(t, sub1, sub2)
	require.NotEqual(t, testUserID, sub1, "subject must not leak the user id")
}

func TestGetSubjectIdentifier_PairwiseVariesBySector(t *testing.T) {
	f := setupState(t)
	ctx := context.Background()

	sub1, err := f.state.GetSubjectIdentifier(ctx, subject.TypePairwise, testUserID, testSector)
	require.NoError(t, err)
	sub2, err := f.state.GetSubjectIdentifier(ctx, subject.TypePairwise, testUserID, "other.example.com")
	require.NoError(t, err)

	require.NotEqual(t, sub1, sub2)
}

func TestGetSubjectIdentifier_PairwiseRequiresSector(t *testing.T) {
	f := setupState(t)

	_, err := f.state.GetSubjectIdentifier(context.Background(), subject.TypePairwise, testUserID, "")

	require.ErrorIs(t, err, subject.ErrUnsupportedSubjectType)
}

func TestGetUserIDForSubjectIdentifier_Inverts(t *testing.T) {
	f := setupState(t)
	ctx := context.Background()

	sub, err := f.state.GetSubjectIdentifier(ctx, subject.TypePairwise, testUserID, testSector)
	require.NoError(t, err)

	userID, err := f.state.GetUserIDForSubjectIdentifier(ctx, sub)
	require.NoError(t, err)
	require.Equal(t, testUserID, userID)
}

func TestGetUserIDForSubjectIdentifier_Unknown(t *testing.T) {
	f := setupState(t)

	_, err := f.state.GetUserIDForSubjectIdentifier(context.Background(), "never-issued")

	require.ErrorIs(t, err, authzstate.ErrUnknownSubjectIdentifier)
}

func TestConsumeAuthorizationCode_SingleUse(t *testing.T) {
	f := setupState(t)
	ctx := context.Background()

	code, err := f.state.CreateAuthorizationCode(ctx, testAuthRequest(), "sub-1")
	require.NoError(t, err)

	consumed, err := f.state.ConsumeAuthorizationCode(ctx, code.Value)
	require.NoError(t, err)
	require.Equal(t, "sub-1", consumed.Subject)
	require.Equal(t, "test-client-1", consumed.AuthRequest.ClientID)

	_, err = f.state.ConsumeAuthorizationCode(ctx, code.Value)
	require.ErrorIs(t, err, authzstate.ErrInvalidAuthorizationCode)
}

func TestConsumeAuthorizationCode_ConcurrentUseYieldsOneSuccess(t *testing.T) {
	f := setupState(t)
	ctx := context.Background()

	code, err := f.state.CreateAuthorizationCode(ctx, testAuthRequest(), "sub-1")
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.state.ConsumeAuthorizationCode(ctx, code.Value); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	require.Len(t, successes, 1, "exactly one concurrent exchange may win")
}

func TestConsumeAuthorizationCode_Expired(t *testing.T) {
	f := setupState(t, authzstate.WithAuthorizationCodeLifetime(time.Minute))
	ctx := context.Background()

	code, err := f.state.CreateAuthorizationCode(ctx, testAuthRequest(), "sub-1")
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Minute)

	_, err = f.state.ConsumeAuthorizationCode(ctx, code.Value)
	require.ErrorIs(t, err, authzstate.ErrInvalidAuthorizationCode)
}

func TestGetAccessToken_NonDestructive(t *testing.T) {
	f := setupState(t)
	ctx := context.Background()

	token, err := f.state.CreateAccessToken(ctx, testAuthRequest(), "sub-1")
	require.NoError(t, err)
	require.Equal(t, authzstate.BearerTokenType, token.TokenType)

	for range 3 {
		got, err := f.state.GetAccessToken(ctx, token.Value)
		require.NoError(t, err)
		require.Equal(t, "openid", got.Scope)
	}
}

func TestGetAccessToken_Expired(t *testing.T) {
	f := setupState(t, authzstate.WithAccessTokenLifetime(time.Minute))
	ctx := context.Background()

	token, err := f.state.CreateAccessToken(ctx, testAuthRequest(), "sub-1")
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Minute)

	_, err = f.state.GetAccessToken(ctx, token.Value)
	require.ErrorIs(t, err, authzstate.ErrInvalidAccessToken)
}

func TestCreateRefreshToken_DisabledByDefault(t *testing.T) {
	f := setupState(t)
	ctx := context.Background()

	require.False(t, f.state.SupportsRefreshTokens())

	token, err := f.state.CreateAccessToken(ctx, testAuthRequest(), "sub-1")
	require.NoError(t, err)

	_, err = f.state.CreateRefreshToken(ctx, token)
	require.ErrorIs(t, err, authzstate.ErrRefreshTokensNotSupported)
}

func TestShouldRotate(t *testing.T) {
	f := setupState(t,
		authzstate.WithRefreshTokenLifetime(24*time.Hour),
		authzstate.WithRefreshTokenThreshold(2*time.Hour),
	)
	ctx := context.Background()

	accessToken, err := f.state.CreateAccessToken(ctx, testAuthRequest(), "sub-1")
	require.NoError(t, err)
	refreshToken, err := f.state.CreateRefreshToken(ctx, accessToken)
	require.NoError(t, err)

	require.False(t, f.state.ShouldRotate(refreshToken), "fresh token must not rotate")

	f.now = f.now.Add(23 * time.Hour)
	require.True(t, f.state.ShouldRotate(refreshToken), "token within threshold of expiry must rotate")
}

func TestRotateRefreshToken_InvalidatesOld(t *testing.T) {
	f := setupState(t, authzstate.WithRefreshTokenLifetime(24*time.Hour))
	ctx := context.Background()

	accessToken, err := f.state.CreateAccessToken(ctx, testAuthRequest(), "sub-1")
	require.NoError(t, err)
	old, err := f.state.CreateRefreshToken(ctx, accessToken)
	require.NoError(t, err)

	rotated, err := f.state.RotateRefreshToken(ctx, old, accessToken)
	require.NoError(t, err)
	require.NotEqual(t, old.Value, rotated.Value)
	require.Equal(t, old.Subject, rotated.Subject)

	_, err = f.state.GetRefreshToken(ctx, old.Value)
	require.ErrorIs(t, err, authzstate.ErrInvalidRefreshToken)

	got, err := f.state.GetRefreshToken(ctx, rotated.Value)
	require.NoError(t, err)
	require.Equal(t, "openid", got.Scope)
}

func TestCreateAccessTokenFromRefresh_DefaultsToOriginalScope(t *testing.T) {
	f := setupState(t, authzstate.WithRefreshTokenLifetime(24*time.Hour))
	ctx := context.Background()

	req := testAuthRequest()
	req.Scope = []string{"openid", "email"}
	accessToken, err := f.state.CreateAccessToken(ctx, req, "sub-1")
	require.NoError(t, err)
	refreshToken, err := f.state.CreateRefreshToken(ctx, accessToken)
	require.NoError(t, err)

	fromRefresh, err := f.state.CreateAccessTokenFromRefresh(ctx, refreshToken, "")
	require.NoError(t, err)
	require.Equal(t, "openid email", fromRefresh.Scope)

	narrowed, err := f.state.CreateAccessTokenFromRefresh(ctx, refreshToken, "openid")
	require.NoError(t, err)
	require.Equal(t, "openid", narrowed.Scope)
}
