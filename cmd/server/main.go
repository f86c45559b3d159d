package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/idkit/go-oidc-provider/authzstate"
	"github.com/idkit/go-oidc-provider/clients"
	"github.com/idkit/go-oidc-provider/internal/config"
	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/provider"
	"github.com/idkit/go-oidc-provider/server"
	"github.com/idkit/go-oidc-provider/signing"
	"github.com/idkit/go-oidc-provider/storage"
	"github.com/idkit/go-oidc-provider/storage/memstore"
	"github.com/idkit/go-oidc-provider/storage/redisstore"
	"github.com/idkit/go-oidc-provider/subject"
	"github.com/idkit/go-oidc-provider/userinfo"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	srv, err := buildServer(c)
	if err != nil {
		return fmt.Errorf("buildServer: %w", err)
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(c config.Config) (*server.Server, error) {
	signer, err := loadSigner(c)
	if err != nil {
		return nil, fmt.Errorf("loadSigner: %w", err)
	}

	stateOptions := []authzstate.Option{
		authzstate.WithAuthorizationCodeLifetime(c.GetAuthorizationCodeLifetime()),
		authzstate.WithAccessTokenLifetime(c.GetAccessTokenLifetime()),
		authzstate.WithRefreshTokenLifetime(c.GetRefreshTokenLifetime()),
		authzstate.WithRefreshTokenThreshold(c.GetRefreshTokenThreshold()),
	}

	var (
		registry storage.Store[*clients.Client]
		pending  storage.Store[*oidcmodel.AuthenticationRequest]
	)
	if redisURL := c.GetRedisURL(); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("redis.ParseURL: %w", err)
		}
		redisClient := redis.NewClient(opts)

		stateOptions = append(stateOptions, authzstate.WithStores(
			redisstore.New[*authzstate.AuthorizationCode](redisClient, "authz_code"),
			redisstore.New[*authzstate.AccessToken](redisClient, "access_token"),
			redisstore.New[*authzstate.RefreshToken](redisClient, "refresh_token"),
			redisstore.New[string](redisClient, "subject"),
		))
		registry = redisstore.New[*clients.Client](redisClient, "client")
		pending = redisstore.New[*oidcmodel.AuthenticationRequest](redisClient, "pending_auth")
	} else {
		registry = memstore.New[*clients.Client]()
		pending = memstore.New[*oidcmodel.AuthenticationRequest]()
	}

	state := authzstate.New(
		subject.NewHashBasedFactory(c.GetSubjectSalt()),
		stateOptions...,
	)

	p, err := provider.New(
		signer,
		providerMetadata(c.GetIssuer()),
		state,
		clients.NewStoreRepo(registry),
		userinfo.NewInMemory(nil),
		provider.WithIDTokenLifetime(c.GetIDTokenLifetime()),
	)
	if err != nil {
		return nil, fmt.Errorf("provider.New: %w", err)
	}

	return server.New(c, p, pending)
}

func loadSigner(c config.Config) (signing.Signer, error) {
	if path := c.GetSigningKeyPEMPath(); path != "" {
		pemData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read signing key: %w", err)
		}
		keyPair, err := signing.LoadRSAKeyPairFromPEM("default", string(pemData))
		if err != nil {
			return nil, fmt.Errorf("load signing key: %w", err)
		}
		return signing.NewKeyPairSigner(keyPair), nil
	}

	// No key configured: generate an ephemeral one. Fine for development,
	// tokens do not survive restarts.
	keyPair, err := signing.GenerateRSAKeyPair(uuid.NewString(), 2048)
	if err != nil {
		return nil, fmt.Errorf("generate signing key: %w", err)
	}
	return signing.NewKeyPairSigner(keyPair), nil
}

func providerMetadata(issuer string) provider.Metadata {
	return provider.Metadata{
		Issuer: issuer,
		Extra: map[string]any{
			"authorization_endpoint": issuer + server.RouteAuthorize,
			"token_endpoint":         issuer + server.RouteToken,
			"userinfo_endpoint":      issuer + server.RouteUserInfo,
			"jwks_uri":               issuer + server.RouteWellKnownJWKS,

			"response_types_supported": []string{
				"code",
				"code id_token",
				"code token",
				"code id_token token",
				"id_token",
				"id_token token",
			},
			"response_modes_supported": []string{"query", "fragment"},
			"subject_types_supported":  []string{"public", "pairwise"},

			"id_token_signing_alg_values_supported": []string{"RS256"},

			"scopes_supported": []string{"openid", "profile", "email", "address", "phone", "offline_access"},

			"token_endpoint_auth_methods_supported": []string{
				"client_secret_post",
				"client_secret_basic",
				"none",
			},

			"grant_types_supported": []string{
				"authorization_code",
				"refresh_token",
			},

			"code_challenge_methods_supported": []string{"S256", "plain"},

			"claims_parameter_supported": true,
		},
	}
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
