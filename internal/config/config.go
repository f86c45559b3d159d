// Package config exposes the runtime configuration of the provider service,
// sourced from environment variables with sensible development defaults.
package config

type Config interface {
	EnvConfig
	OIDCConfig
}

type mainConfig struct {
	EnvVars
	OIDC
}

func New() Config {
	return mainConfig{}
}
