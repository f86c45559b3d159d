package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteWellKnownOpenIDConfig, ChainMiddleware(s.WellKnownOpenIDConfig(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteWellKnownJWKS, ChainMiddleware(s.JWKS(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthorize, ChainMiddleware(s.Authorize(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteUserInfo, ChainMiddleware(s.Userinfo(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteUserInfo, ChainMiddleware(s.Userinfo(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteVettingResult, ChainMiddleware(s.VettingResult(), s.APIMiddleware()...))
}
