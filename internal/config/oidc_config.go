package config

import (
	"time"
)

type OIDCConfig interface {
	GetAuthorizationCodeLifetime() time.Duration
	GetAccessTokenLifetime() time.Duration
	GetIDTokenLifetime() time.Duration
	GetRefreshTokenLifetime() time.Duration
	GetRefreshTokenThreshold() time.Duration
}

type OIDC struct{}

var _ OIDCConfig = OIDC{}

func (OIDC) GetAuthorizationCodeLifetime() time.Duration {
	return envDuration("AUTH_CODE_LIFETIME", 10*time.Minute)
}

func (OIDC) GetAccessTokenLifetime() time.Duration {
	return envDuration("ACCESS_TOKEN_LIFETIME", 1*time.Hour)
}

func (OIDC) GetIDTokenLifetime() time.Duration {
	return envDuration("ID_TOKEN_LIFETIME", 1*time.Hour)
}

// GetRefreshTokenLifetime returns the refresh token validity window. Zero
// disables the refresh token grant entirely.
func (OIDC) GetRefreshTokenLifetime() time.Duration {
	return envDuration("REFRESH_TOKEN_LIFETIME", 0)
}

// GetRefreshTokenThreshold returns the remaining-lifetime threshold below
// which a used refresh token is rotated. Zero never rotates.
func (OIDC) GetRefreshTokenThreshold() time.Duration {
	return envDuration("REFRESH_TOKEN_THRESHOLD", 0)
}

func envDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
