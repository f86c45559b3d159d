// Package server is the HTTP transport in front of the provider engine. It
// owns routing, protocol error translation and request logging; all OIDC
// semantics live in the provider package.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/idkit/go-oidc-provider/internal/config"
	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/provider"
	"github.com/idkit/go-oidc-provider/storage"
)

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	provider *provider.Provider

	// pending holds parsed authentication requests awaiting out-of-band
	// vetting, keyed by nonce.
	pending storage.Store[*oidcmodel.AuthenticationRequest]
}

func New(cfg config.Config, p *provider.Provider, pending storage.Store[*oidcmodel.AuthenticationRequest]) (*Server, error) {
	if p == nil {
		return nil, fmt.Errorf("[Server New] provider is required")
	}
	if pending == nil {
		return nil, fmt.Errorf("[Server New] pending request store is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   cfg,
		provider: p,
		pending:  pending,
	}
	s.env = cfg.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if colour, ok := methodColours[method]; ok {
		displayMethod = colour + paddedMethod + colourReset
	} else {
		displayMethod = colourGray + paddedMethod + colourReset
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}
