package config

import (
	"strings"

	apperrors "github.com/jrsteele09/ziris-auth/internal/errors"
)

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	RateLimitConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDatabasePath() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	RateLimit
}

func New() Config {
	return mainConfig{}
}

// insecureDefaultSecret is the placeholder secret shipped in example
// deployment files. It must never be accepted outside development.
const insecureDefaultSecret = "change-this-secret-key"

// Validate checks startup configuration. A missing or known-default signing
// secret is a hard error in any non-development environment.
func Validate(c Config) error {
	secret := strings.TrimSpace(c.GetSecret())
	if c.GetEnv() == "DEV" {
		return nil
	}
	if secret == "" || secret == insecureDefaultSecret {
		return apperrors.ErrInsecureSecret
	}
	return nil
}
