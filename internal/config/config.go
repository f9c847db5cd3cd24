package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr   string
	ListenAddr string
	LogLevel   string

	PostgresDSN string

	JWKSURL             string
	FreshnessWindowSecs int
	JWKSCacheTTLSecs    int
	JWKSMaxStaleSecs    int

	DeliverTimeoutSecs  int
	ShutdownTimeoutSecs int
	SigningKeyBits      int

	RateLimitRequests      int
	RateLimitWindowSeconds int
	RateLimitMaxKeys       int
	RateLimitFailClosed    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	return Config{
		HTTPAddr:               envDefault("HTTP_ADDR", ":10000"),
		ListenAddr:             envDefault("LISTEN_ADDR", ":5000"),
		LogLevel:               envDefault("LOG_LEVEL", "info"),
		PostgresDSN:            os.Getenv("POSTGRES_DSN"),
		JWKSURL:                os.Getenv("JWKS_URL"),
		FreshnessWindowSecs:    envIntDefault("FRESHNESS_WINDOW_SECONDS", 300),
		JWKSCacheTTLSecs:       envIntDefault("JWKS_CACHE_TTL_SECONDS", 300),
		JWKSMaxStaleSecs:       envIntDefault("JWKS_MAX_STALE_SECONDS", 900),
		DeliverTimeoutSecs:     envIntDefault("DELIVER_TIMEOUT_SECONDS", 10),
		ShutdownTimeoutSecs:    envIntDefault("SHUTDOWN_TIMEOUT_SECONDS", 10),
		SigningKeyBits:         envIntDefault("SIGNING_KEY_BITS", 2048),
		RateLimitRequests:      envIntDefault("RATE_LIMIT_REQUESTS", 0),
		RateLimitWindowSeconds: envIntDefault("RATE_LIMIT_WINDOW_SECONDS", 60),
		RateLimitMaxKeys:       envIntDefault("RATE_LIMIT_MAX_KEYS", 10000),
		RateLimitFailClosed:    envBoolDefault("RATE_LIMIT_FAIL_CLOSED", false),
		RedisAddr:              os.Getenv("REDIS_ADDR"),
		RedisPassword:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:                envIntDefault("REDIS_DB", 0),
	}
}

func (c Config) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowSecs) * time.Second
}

func (c Config) JWKSCacheTTL() time.Duration {
	return time.Duration(c.JWKSCacheTTLSecs) * time.Second
}

func (c Config) JWKSMaxStale() time.Duration {
	return time.Duration(c.JWKSMaxStaleSecs) * time.Second
}

func (c Config) DeliverTimeout() time.Duration {
	return time.Duration(c.DeliverTimeoutSecs) * time.Second
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}
