// Package authzstate owns the authoritative mapping of issued authorization
// codes, access tokens and refresh tokens to their metadata. It enforces
// expiry and single-use semantics and bridges user identifiers and subject
// identifiers.
package authzstate

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/storage"
	"github.com/idkit/go-oidc-provider/storage/memstore"
	"github.com/idkit/go-oidc-provider/subject"
)

const (
	// BearerTokenType is the token_type of every access token issued here.
	BearerTokenType = "Bearer"

	tokenValueLength = 32 // bytes of entropy per minted value

	defaultAuthorizationCodeLifetime = 10 * time.Minute
	defaultAccessTokenLifetime       = time.Hour
)

// State-level error kinds. The provider engine translates these into
// protocol-visible errors; they are never surfaced raw.
var (
	ErrInvalidAuthorizationCode  = errors.New("invalid authorization code")
	ErrInvalidAccessToken        = errors.New("invalid access token")
	ErrInvalidRefreshToken       = errors.New("invalid refresh token")
	ErrUnknownSubjectIdentifier  = errors.New("unknown subject identifier")
	ErrRefreshTokensNotSupported = errors.New("refresh tokens not supported")
)

// AuthorizationState owns the three token stores and the subject identifier
// index. The stores are the only mutable shared state of the core; code
// consumption and refresh rotation are serialized so that two concurrent
// exchanges of the same artifact yield exactly one success.
type AuthorizationState struct {
	subjectFactory subject.Factory

	codes         storage.Store[*AuthorizationCode]
	accessTokens  storage.Store[*AccessToken]
	refreshTokens storage.Store[*RefreshToken]
	subjects      storage.Store[string] // subject identifier -> user id

	authorizationCodeLifetime time.Duration
	accessTokenLifetime       time.Duration
	refreshTokenLifetime      time.Duration
	refreshTokenThreshold     time.Duration

	nowFunc func() time.Time

	mu sync.Mutex // guards consume and rotate
}

// Option modifies an AuthorizationState instance.
type Option func(*AuthorizationState)

// WithAuthorizationCodeLifetime sets the validity window of minted codes.
func WithAuthorizationCodeLifetime(d time.Duration) Option {
	return func(s *AuthorizationState) { s.authorizationCodeLifetime = d }
}

// WithAccessTokenLifetime sets the validity window of minted access tokens.
func WithAccessTokenLifetime(d time.Duration) Option {
	return func(s *AuthorizationState) { s.accessTokenLifetime = d }
}

// WithRefreshTokenLifetime enables refresh tokens with the given validity
// window. Zero disables refresh token issuance.
func WithRefreshTokenLifetime(d time.Duration) Option {
	return func(s *AuthorizationState) { s.refreshTokenLifetime = d }
}

// WithRefreshTokenThreshold sets the rotation threshold: a refresh token
// used with less remaining lifetime than this is replaced. Zero disables
// rotation.
func WithRefreshTokenThreshold(d time.Duration) Option {
	return func(s *AuthorizationState) { s.refreshTokenThreshold = d }
}

// WithNowFunc sets the time source (primarily for testing).
func WithNowFunc(now func() time.Time) Option {
	return func(s *AuthorizationState) { s.nowFunc = now }
}

// WithStores replaces the default in-memory backends, e.g. with
// redis-backed stores.
func WithStores(
	codes storage.Store[*AuthorizationCode],
	accessTokens storage.Store[*AccessToken],
	refreshTokens storage.Store[*RefreshToken],
	subjects storage.Store[string],
) Option {
	return func(s *AuthorizationState) {
		s.codes = codes
		s.accessTokens = accessTokens
		s.refreshTokens = refreshTokens
		s.subjects = subjects
	}
}

// New creates an AuthorizationState with in-memory stores unless overridden.
func New(subjectFactory subject.Factory, options ...Option) *AuthorizationState {
	s := &AuthorizationState{
		subjectFactory:            subjectFactory,
		authorizationCodeLifetime: defaultAuthorizationCodeLifetime,
		accessTokenLifetime:       defaultAccessTokenLifetime,
		nowFunc:                   time.Now,
	}

	for _, opt := range options {
		opt(s)
	}

	if s.codes == nil {
		s.codes = memstore.New[*AuthorizationCode]()
	}
	if s.accessTokens == nil {
		s.accessTokens = memstore.New[*AccessToken]()
	}
	if s.refreshTokens == nil {
		s.refreshTokens = memstore.New[*RefreshToken]()
	}
	if s.subjects == nil {
		s.subjects = memstore.New[string]()
	}

	return s
}

// AccessTokenLifetime returns the configured access token validity window.
func (s *AuthorizationState) AccessTokenLifetime() time.Duration {
	return s.accessTokenLifetime
}

// SupportsRefreshTokens reports whether refresh tokens are issued at all.
func (s *AuthorizationState) SupportsRefreshTokens() bool {
	return s.refreshTokenLifetime > 0
}

// GetSubjectIdentifier derives the subject identifier for a user towards a
// client and records the reverse mapping. Derivation is deterministic, so
// repeated calls return the same identifier.
func (s *AuthorizationState) GetSubjectIdentifier(ctx context.Context, subjectType subject.Type, userID, sectorIdentifier string) (string, error) {
	var sub string
	switch subjectType {
	case subject.TypePublic:
		sub = s.subjectFactory.Public(userID)
	case subject.TypePairwise:
		if sectorIdentifier == "" {
			return "", errors.Wrap(subject.ErrUnsupportedSubjectType, "pairwise requires a sector identifier")
		}
		sub = s.subjectFactory.Pairwise(sectorIdentifier, userID)
	default:
		return "", errors.Wrapf(subject.ErrUnsupportedSubjectType, "%q", subjectType)
	}

	if err := s.subjects.Set(ctx, sub, userID, 0); err != nil {
		return "", errors.Wrap(err, "[GetSubjectIdentifier] store subject mapping")
	}
	return sub, nil
}

// GetUserIDForSubjectIdentifier resolves a subject identifier back to the
// local user identifier.
func (s *AuthorizationState) GetUserIDForSubjectIdentifier(ctx context.Context, sub string) (string, error) {
	userID, err := s.subjects.Get(ctx, sub)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", errors.Wrapf(ErrUnknownSubjectIdentifier, "%q", sub)
	}
	if err != nil {
		return "", errors.Wrap(err, "[GetUserIDForSubjectIdentifier] subject lookup")
	}
	return userID, nil
}

// CreateAuthorizationCode mints a single-use authorization code bound to the
// authentication request and subject.
func (s *AuthorizationState) CreateAuthorizationCode(ctx context.Context, req *oidcmodel.AuthenticationRequest, sub string) (*AuthorizationCode, error) {
	now := s.nowFunc()
	code := &AuthorizationCode{
		Value:       newTokenValue(),
		AuthRequest: req,
		Subject:     sub,
		IssuedAt:    now,
		Expiry:      now.Add(s.authorizationCodeLifetime),
	}

	if err := s.codes.Set(ctx, code.Value, code, s.authorizationCodeLifetime); err != nil {
		return nil, errors.Wrap(err, "[CreateAuthorizationCode] store code")
	}
	return code, nil
}

// ConsumeAuthorizationCode atomically reads and invalidates a code. A second
// consumption of the same value fails with ErrInvalidAuthorizationCode, as
// does an expired or unknown value.
func (s *AuthorizationState) ConsumeAuthorizationCode(ctx context.Context, value string) (*AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.codes.Get(ctx, value)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrInvalidAuthorizationCode
	}
	if err != nil {
		return nil, errors.Wrap(err, "[ConsumeAuthorizationCode] code lookup")
	}

	if s.nowFunc().After(code.Expiry) {
		_ = s.codes.Delete(ctx, value)
		return nil, ErrInvalidAuthorizationCode
	}

	if err := s.codes.Delete(ctx, value); err != nil {
		return nil, errors.Wrap(err, "[ConsumeAuthorizationCode] invalidate code")
	}
	return code, nil
}

// PeekAuthorizationCode reads a code without consuming it. Used by tests and
// by the authorize flow when it needs to confirm issuance.
func (s *AuthorizationState) PeekAuthorizationCode(ctx context.Context, value string) (*AuthorizationCode, error) {
	code, err := s.codes.Get(ctx, value)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrInvalidAuthorizationCode
	}
	return code, err
}

// CreateAccessToken mints an access token bound to the authentication
// request and subject, snapshotting the request's scope and claims request.
func (s *AuthorizationState) CreateAccessToken(ctx context.Context, req *oidcmodel.AuthenticationRequest, sub string) (*AccessToken, error) {
	return s.createAccessToken(ctx, req.ClientID, req.ScopeString(), req.Claims, sub)
}

// CreateAccessTokenFromRefresh mints a replacement access token from a
// refresh token's recorded authorization, optionally narrowed to the
// requested scope.
func (s *AuthorizationState) CreateAccessTokenFromRefresh(ctx context.Context, rt *RefreshToken, scope string) (*AccessToken, error) {
	if scope == "" {
		scope = rt.Scope
	}
	return s.createAccessToken(ctx, rt.ClientID, scope, rt.ClaimsRequest, rt.Subject)
}

func (s *AuthorizationState) createAccessToken(ctx context.Context, clientID, scope string, claimsReq *oidcmodel.ClaimsRequest, sub string) (*AccessToken, error) {
	now := s.nowFunc()
	token := &AccessToken{
		Value:         newTokenValue(),
		TokenType:     BearerTokenType,
		Subject:       sub,
		ClientID:      clientID,
		Scope:         scope,
		ClaimsRequest: claimsReq,
		IssuedAt:      now,
		Expiry:        now.Add(s.accessTokenLifetime),
	}

	if err := s.accessTokens.Set(ctx, token.Value, token, s.accessTokenLifetime); err != nil {
		return nil, errors.Wrap(err, "[CreateAccessToken] store token")
	}
	return token, nil
}

// GetAccessToken resolves an access token value, failing with
// ErrInvalidAccessToken for unknown or expired values. The read is
// non-destructive.
func (s *AuthorizationState) GetAccessToken(ctx context.Context, value string) (*AccessToken, error) {
	token, err := s.accessTokens.Get(ctx, value)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrInvalidAccessToken
	}
	if err != nil {
		return nil, errors.Wrap(err, "[GetAccessToken] token lookup")
	}

	if s.nowFunc().After(token.Expiry) {
		return nil, ErrInvalidAccessToken
	}
	return token, nil
}

// CreateRefreshToken mints a refresh token bound to an access token's
// authorization. Fails when refresh tokens are disabled.
func (s *AuthorizationState) CreateRefreshToken(ctx context.Context, accessToken *AccessToken) (*RefreshToken, error) {
	if !s.SupportsRefreshTokens() {
		return nil, ErrRefreshTokensNotSupported
	}

	now := s.nowFunc()
	token := &RefreshToken{
		Value:         newTokenValue(),
		Subject:       accessToken.Subject,
		ClientID:      accessToken.ClientID,
		Scope:         accessToken.Scope,
		ClaimsRequest: accessToken.ClaimsRequest,
		IssuedAt:      now,
		Expiry:        now.Add(s.refreshTokenLifetime),
	}

	if err := s.refreshTokens.Set(ctx, token.Value, token, s.refreshTokenLifetime); err != nil {
		return nil, errors.Wrap(err, "[CreateRefreshToken] store token")
	}
	return token, nil
}

// GetRefreshToken resolves a refresh token value, failing with
// ErrInvalidRefreshToken for unknown or expired values.
func (s *AuthorizationState) GetRefreshToken(ctx context.Context, value string) (*RefreshToken, error) {
	token, err := s.refreshTokens.Get(ctx, value)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, errors.Wrap(err, "[GetRefreshToken] token lookup")
	}

	if s.nowFunc().After(token.Expiry) {
		return nil, ErrInvalidRefreshToken
	}
	return token, nil
}

// ShouldRotate reports whether the refresh token's remaining lifetime is
// below the configured rotation threshold.
func (s *AuthorizationState) ShouldRotate(rt *RefreshToken) bool {
	if s.refreshTokenThreshold <= 0 {
		return false
	}
	return rt.Expiry.Sub(s.nowFunc()) < s.refreshTokenThreshold
}

// RotateRefreshToken invalidates the old refresh token and mints a
// replacement bound to the given access token. The swap is serialized with
// other consume/rotate operations.
func (s *AuthorizationState) RotateRefreshToken(ctx context.Context, old *RefreshToken, accessToken *AccessToken) (*RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshTokens.Delete(ctx, old.Value); err != nil {
		return nil, errors.Wrap(err, "[RotateRefreshToken] invalidate old token")
	}
	return s.CreateRefreshToken(ctx, accessToken)
}

// newTokenValue mints a cryptographically unguessable opaque value.
func newTokenValue() string {
	buf := make([]byte, tokenValueLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms
		panic(err)
	}
	return hex.EncodeToString(buf)
}
