package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/idkit/go-oidc-provider/clientauth"
	"github.com/idkit/go-oidc-provider/oidcmodel"
	"github.com/idkit/go-oidc-provider/provider"
	"github.com/idkit/go-oidc-provider/vetting"
)

const contentTypeJSON = "application/json; charset=utf-8"

// WellKnownOpenIDConfig serves the OIDC discovery document
func (s *Server) WellKnownOpenIDConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(s.provider.ProviderConfiguration())
	}
}

// JWKS returns the JSON Web Key Set used to validate issued ID Tokens
func (s *Server) JWKS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jwks, err := s.provider.JWKS()
		if err != nil {
			http.Error(w, "Failed to get JWKS: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
		_ = json.NewEncoder(w).Encode(jwks)
	}
}

// Authorize receives an authentication request and parks it until the
// out-of-band vetting flow confirms the end-user's identity. The request is
// keyed by its nonce, which the vetting QR code carries back.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authReq, err := s.provider.ParseAuthenticationRequest(r.URL.RawQuery)
		if err != nil {
			s.authorizeError(w, r, err)
			return
		}

		if authReq.Nonce == "" {
			s.redirectError(w, r, authReq, provider.OAuthErrorInvalidRequest, "nonce is required")
			return
		}

		if err := s.pending.Set(r.Context(), authReq.Nonce, authReq, s.config.GetAuthorizationCodeLifetime()); err != nil {
			log.Error().Err(err).Msg("failed to store pending authentication request")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "nonce": authReq.Nonce})
	}
}

// authorizeError answers a failed authentication request: redirected to the
// client when the redirect URI can be trusted, a plain 400 otherwise.
func (s *Server) authorizeError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidReq *provider.InvalidAuthenticationRequest
	if !errors.As(err, &invalidReq) {
		http.Error(w, "Invalid authentication request: "+err.Error(), http.StatusBadRequest)
		return
	}

	rawReq, parseErr := oidcmodel.ParseAuthenticationRequest(r.URL.RawQuery)
	if parseErr != nil || !s.provider.TrustedRedirectURI(rawReq.ClientID, rawReq.RedirectURI) {
		http.Error(w, "Invalid authentication request: "+invalidReq.Msg, http.StatusBadRequest)
		return
	}

	s.redirectError(w, r, rawReq, invalidReq.OAuthError, invalidReq.Msg)
}

func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, authReq *oidcmodel.AuthenticationRequest, oauthError, description string) {
	params := url.Values{}
	params.Set("error", oauthError)
	params.Set("error_description", description)
	if authReq.State != "" {
		params.Set("state", authReq.State)
	}

	target, err := url.Parse(authReq.RedirectURI)
	if err != nil {
		http.Error(w, "Invalid authentication request: "+description, http.StatusBadRequest)
		return
	}
	encoded := params.Encode()
	if provider.ShouldFragmentEncode(authReq) {
		target.Fragment = encoded
		target.RawFragment = encoded
	} else {
		target.RawQuery = encoded
	}

	http.Redirect(w, r, target.String(), http.StatusFound)
}

// VettingResult completes a pending authentication request once a vetting
// station has confirmed the user's identity. The QR payload carries the
// nonce that keys the pending request.
func (s *Server) VettingResult() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "malformed form", http.StatusBadRequest)
			return
		}

		qrData, err := vetting.ParseQRData(r.PostFormValue("qrcode"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		authReq, err := s.pending.Get(r.Context(), qrData.Nonce)
		if err != nil {
			http.Error(w, "no pending authentication request for nonce", http.StatusBadRequest)
			return
		}

		authResp, err := vetting.CreateAuthenticationResponse(r.Context(), s.provider, authReq, r.PostFormValue("identity"), nil)
		if err != nil {
			log.Error().Err(err).Str("client_id", authReq.ClientID).Msg("authorization failed")
			http.Error(w, "authorization failed", http.StatusInternalServerError)
			return
		}

		if err := s.pending.Delete(r.Context(), qrData.Nonce); err != nil {
			log.Warn().Err(err).Msg("failed to delete pending authentication request")
		}

		redirectURL, err := authResp.EncodeToRedirectURI(authReq.RedirectURI, provider.ShouldFragmentEncode(authReq))
		if err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"redirect_url": redirectURL})
	}
}

// Token is the OAuth2 token endpoint
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		resp, err := s.provider.HandleTokenRequest(r.Context(), string(body), r.Header.Get("Authorization"), nil)
		if err != nil {
			s.tokenError(w, err)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func (s *Server) tokenError(w http.ResponseWriter, err error) {
	if errors.Is(err, clientauth.ErrInvalidClientAuthentication) {
		w.Header().Set("WWW-Authenticate", `Basic realm="token endpoint"`)
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}

	var invalidReq *provider.InvalidTokenRequest
	if errors.As(err, &invalidReq) {
		writeOAuthError(w, http.StatusBadRequest, invalidReq.OAuthError, invalidReq.Msg)
		return
	}

	log.Error().Err(err).Msg("token request failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// Userinfo is the OIDC userinfo endpoint
func (s *Server) Userinfo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rawParams := r.URL.RawQuery
		if r.Method == http.MethodPost {
			body, err := io.ReadAll(r.Body)
			if err != nil {
				http.Error(w, "failed to read request body", http.StatusBadRequest)
				return
			}
			rawParams = string(body)
		}

		userClaims, err := s.provider.HandleUserinfoRequest(r.Context(), rawParams, r.Header.Get("Authorization"))
		if err != nil {
			s.userinfoError(w, err)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(userClaims)
	}
}

func (s *Server) userinfoError(w http.ResponseWriter, err error) {
	var bearerErr *provider.BearerTokenError
	if errors.As(err, &bearerErr) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeOAuthError(w, http.StatusUnauthorized, "invalid_request", bearerErr.Msg)
		return
	}

	var invalidReq *provider.InvalidUserinfoRequest
	if errors.As(err, &invalidReq) {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		writeOAuthError(w, http.StatusUnauthorized, "invalid_token", invalidReq.Msg)
		return
	}

	log.Error().Err(err).Msg("userinfo request failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeOAuthError(w http.ResponseWriter, status int, oauthError, description string) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             oauthError,
		"error_description": description,
	})
}
