package provider

import "fmt"

// OAuth protocol error codes carried by request validation failures.
const (
	OAuthErrorInvalidRequest          = "invalid_request"
	OAuthErrorInvalidScope            = "invalid_scope"
	OAuthErrorUnauthorizedClient      = "unauthorized_client"
	OAuthErrorUnsupportedResponseType = "unsupported_response_type"
	OAuthErrorInvalidGrant            = "invalid_grant"
	OAuthErrorUnsupportedGrantType    = "unsupported_grant_type"
)

// InvalidAuthenticationRequest is returned when an authentication request
// fails protocol validation. It carries the machine-readable oauth error
// code and preserves the underlying cause for errors.Is/As.
type InvalidAuthenticationRequest struct {
	Msg        string
	OAuthError string
	cause      error
}

func newInvalidAuthenticationRequest(msg, oauthError string, cause error) *InvalidAuthenticationRequest {
	if oauthError == "" {
		oauthError = OAuthErrorInvalidRequest
	}
	return &InvalidAuthenticationRequest{Msg: msg, OAuthError: oauthError, cause: cause}
}

func (e *InvalidAuthenticationRequest) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid authentication request: %s: %v", e.Msg, e.cause)
	}
	return fmt.Sprintf("invalid authentication request: %s", e.Msg)
}

func (e *InvalidAuthenticationRequest) Unwrap() error { return e.cause }

// AuthorizationError is returned for requests that parse cleanly but are
// semantically rejected, e.g. conflicting requested sub values.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization error: %s", e.Msg)
}

// InvalidTokenRequest is returned for malformed or invalid grants at the
// token endpoint. Client authentication failures are never downgraded into
// this kind.
type InvalidTokenRequest struct {
	Msg        string
	OAuthError string
	cause      error
}

func newInvalidTokenRequest(msg, oauthError string, cause error) *InvalidTokenRequest {
	if oauthError == "" {
		oauthError = OAuthErrorInvalidRequest
	}
	return &InvalidTokenRequest{Msg: msg, OAuthError: oauthError, cause: cause}
}

func (e *InvalidTokenRequest) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid token request: %s: %v", e.Msg, e.cause)
	}
	return fmt.Sprintf("invalid token request: %s", e.Msg)
}

func (e *InvalidTokenRequest) Unwrap() error { return e.cause }

// BearerTokenError is returned when the userinfo request carries no usable
// bearer token at all.
type BearerTokenError struct {
	Msg string
}

func (e *BearerTokenError) Error() string {
	return fmt.Sprintf("bearer token error: %s", e.Msg)
}

// InvalidUserinfoRequest is returned when the presented access token is
// unknown, expired, or not bound to a resolvable subject.
type InvalidUserinfoRequest struct {
	Msg   string
	cause error
}

func (e *InvalidUserinfoRequest) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid userinfo request: %s: %v", e.Msg, e.cause)
	}
	return fmt.Sprintf("invalid userinfo request: %s", e.Msg)
}

func (e *InvalidUserinfoRequest) Unwrap() error { return e.cause }
