package config

import "time"

// CacheConfig defines settings for the dashboard response cache middleware.
// When Enabled is false or no Redis client is available, caching is disabled.
// Only successful GET responses are cached; the TTL is kept short because the
// console and the bus mutate the ledger out from under the dashboard.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      parseBool(getenv("CACHE_ENABLED", "true")),
		TTL:          parseDur(getenv("CACHE_TTL", "5s")),
		Prefix:       getenv("CACHE_PREFIX", "dash"),
		MaxBodyBytes: atoi(getenv("CACHE_MAX_BODY_BYTES", "1048576")),
	}
}

// RateLimitConfig defines settings for the fixed-window rate limiter applied
// to dashboard requests.
type RateLimitConfig struct {
	Enabled bool
	Max     int           // requests allowed per window per client IP
	Window  time.Duration // window length
	Prefix  string        // redis key namespace
}

// LoadRateLimitConfig reads environment variables to build a RateLimitConfig.
func LoadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled: parseBool(getenv("RATE_LIMIT_ENABLED", "true")),
		Max:     atoi(getenv("RATE_LIMIT_MAX", "60")),
		Window:  parseDur(getenv("RATE_LIMIT_WINDOW", "1m")),
		Prefix:  getenv("RATE_LIMIT_PREFIX", "rl"),
	}
}
