// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds every setting of the server and admin CLI.
type Config struct {
	HTTPAddr  string `env:"HTTP_ADDR" envDefault:":3000"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// StoreBackend is "memory" or "redis". Empty picks redis when RedisURL is
	// set and memory otherwise.
	StoreBackend string        `env:"STORE_BACKEND"`
	RedisURL     string        `env:"REDIS_URL"`
	PartyTTL     time.Duration `env:"PARTY_TTL" envDefault:"24h"`
	LockLease    time.Duration `env:"LOCK_LEASE" envDefault:"5s"`
	LockWait     time.Duration `env:"LOCK_WAIT" envDefault:"3s"`

	DatabaseURL string `env:"DATABASE_URL"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"48h"`

	// AdminKeyHash is a bcrypt hash; admin routes are disabled when empty.
	AdminKeyHash string `env:"ADMIN_KEY_HASH"`

	AllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`
}

// Load reads dotenvPath if it exists, then parses the environment.
// Variables already set in the environment win over the file.
func Load(dotenvPath string) (*Config, error) {
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Backend resolves the effective store backend.
func (c *Config) Backend() string {
	if c.StoreBackend != "" {
		return c.StoreBackend
	}
	if c.RedisURL != "" {
		return StoreRedis
	}
	return StoreMemory
}

// Validate checks combinations env tags cannot express.
func (c *Config) Validate() error {
	switch c.Backend() {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("STORE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		return errors.New("SESSION_SECRET must be at least 16 characters")
	}
	return nil
}
