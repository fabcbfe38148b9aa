package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const minProductionSecretLen = 32

// Config holds all runtime settings, populated from the environment.
type Config struct {
	// Env selects runtime behavior: "development" or "production".
	Env        string `env:"INFIAGENTIC_ENV" envDefault:"development"`
	ListenAddr string `env:"INFIAGENTIC_LISTEN_ADDR" envDefault:":8080"`

	// DatabaseDSN is the PostgreSQL connection string. Optional in
	// development (the API starts without persistence-backed routes ready).
	DatabaseDSN string `env:"INFIAGENTIC_PG_DSN"`

	// RedisAddr enables the shared revocation cache when set. The service
	// degrades to a process-local revocation set without it.
	RedisAddr     string `env:"INFIAGENTIC_REDIS_ADDR"`
	RedisPassword string `env:"INFIAGENTIC_REDIS_PASSWORD"`
	RedisDB       int    `env:"INFIAGENTIC_REDIS_DB" envDefault:"0"`

	// SecretKey signs session tokens. Required (>=32 bytes) in production;
	// auto-generated per process in development.
	SecretKey string `env:"INFIAGENTIC_SECRET_KEY"`

	AccessTokenTTL  time.Duration `env:"INFIAGENTIC_ACCESS_TTL" envDefault:"30m"`
	RefreshTokenTTL time.Duration `env:"INFIAGENTIC_REFRESH_TTL" envDefault:"168h"`

	RateLimitPerMinute int `env:"INFIAGENTIC_RATE_LIMIT" envDefault:"100"`
}

// Load parses the environment and validates production constraints.
// In development a missing secret key is generated for the lifetime of the
// process; the generated value is reported so callers can log a warning.
func Load() (*Config, bool, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, false, fmt.Errorf("config: parse environment: %w", err)
	}

	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 {
		return nil, false, errors.New("config: token TTLs must be positive")
	}
	if cfg.RefreshTokenTTL < cfg.AccessTokenTTL {
		return nil, false, errors.New("config: refresh TTL must not be shorter than access TTL")
	}

	generated := false
	if cfg.SecretKey == "" {
		if cfg.Production() {
			return nil, false, errors.New("config: INFIAGENTIC_SECRET_KEY is required in production")
		}
		key := make([]byte, minProductionSecretLen)
		if _, err := rand.Read(key); err != nil {
			return nil, false, fmt.Errorf("config: generate dev secret: %w", err)
		}
		cfg.SecretKey = base64.RawURLEncoding.EncodeToString(key)
		generated = true
	}
	if cfg.Production() {
		if len(cfg.SecretKey) < minProductionSecretLen {
			return nil, false, fmt.Errorf("config: secret key must be at least %d bytes in production", minProductionSecretLen)
		}
		if cfg.DatabaseDSN == "" {
			return nil, false, errors.New("config: INFIAGENTIC_PG_DSN is required in production")
		}
	}
	return cfg, generated, nil
}

// Production reports whether the service runs with production hardening.
func (c *Config) Production() bool {
	return c.Env == "production"
}
