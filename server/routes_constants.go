package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth2 / OIDC Routes
	RouteWellKnownOpenIDConfig = "/.well-known/openid-configuration"
	RouteWellKnownJWKS         = "/.well-known/jwks.json"
	RouteAuthorize             = "/authentication"
	RouteToken                 = "/token"
	RouteUserInfo              = "/userinfo"

	// Vetting Routes
	RouteVettingResult = "/vetting-result"
)
