package config

import (
	"strconv"
	"time"
)

type AuthConfig interface {
	GetSecret() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetResetTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetBcryptCost() int
	GetLegacyTokenCompat() bool
}

type Auth struct{}

var _ AuthConfig = Auth{}

func (Auth) GetSecret() string {
	return GetEnv("ZIRIS_SECRET", "")
}

func (Auth) GetAccessTokenExpiry() time.Duration {
	return time.Duration(envInt("ACCESS_TOKEN_TTL_MINUTES", 120)) * time.Minute
}

func (Auth) GetRefreshTokenExpiry() time.Duration {
	return time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", 14)) * 24 * time.Hour
}

func (Auth) GetResetTokenExpiry() time.Duration {
	return time.Duration(envInt("RESET_TOKEN_TTL_HOURS", 2)) * time.Hour
}

func (Auth) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (Auth) GetBcryptCost() int {
	return envInt("BCRYPT_COST", 12)
}

// GetLegacyTokenCompat enables acceptance of pre-JWT "dummy-" bearer tokens.
// Off by default; every use of the legacy path is logged as deprecated.
func (Auth) GetLegacyTokenCompat() bool {
	return GetEnv("LEGACY_TOKEN_COMPAT", "false") == "true"
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(GetEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
