package config

import (
	"fmt"
	"os"
)

const (
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	issuerEnvVar     = "ISSUER"
	redisURLEnvVar   = "REDIS_URL"
	subjectSaltVar   = "SUBJECT_SALT"
	signingKeyPEMVar = "SIGNING_KEY_PEM"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetIssuer() string
	GetRedisURL() string
	GetSubjectSalt() string
	GetSigningKeyPEMPath() string
	GetEnv() string
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Go OIDC Provider")
}

// GetIssuer returns the issuer identifier used in discovery, ID Tokens and
// all advertised endpoint URLs.
func (EnvVars) GetIssuer() string {
	return GetEnv(issuerEnvVar, "http://localhost:8080")
}

// GetRedisURL returns the redis connection URL. Empty selects the in-memory
// stores.
func (EnvVars) GetRedisURL() string {
	return GetEnv(redisURLEnvVar, "")
}

// GetSubjectSalt returns the salt for pairwise subject derivation. It must
// stay stable across restarts or issued subjects change.
func (EnvVars) GetSubjectSalt() string {
	return GetEnv(subjectSaltVar, "dev-subject-salt")
}

// GetSigningKeyPEMPath returns the path of the RSA signing key in PEM form.
// Empty generates an ephemeral key at startup.
func (EnvVars) GetSigningKeyPEMPath() string {
	return GetEnv(signingKeyPEMVar, "")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
