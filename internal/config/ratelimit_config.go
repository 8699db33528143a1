package config

import "time"

type RateLimitConfig interface {
	GetLoginMaxHits() int
	GetLoginWindow() time.Duration
	GetRegisterMaxHits() int
	GetRegisterWindow() time.Duration
}

type RateLimit struct{}

var _ RateLimitConfig = RateLimit{}

func (RateLimit) GetLoginMaxHits() int {
	return envInt("LOGIN_MAX_HITS", 10)
}

func (RateLimit) GetLoginWindow() time.Duration {
	return time.Duration(envInt("LOGIN_WINDOW_SECONDS", 60)) * time.Second
}

func (RateLimit) GetRegisterMaxHits() int {
	return envInt("REGISTER_MAX_HITS", 5)
}

func (RateLimit) GetRegisterWindow() time.Duration {
	return time.Duration(envInt("REGISTER_WINDOW_SECONDS", 60)) * time.Second
}
