// Package config loads server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
)

// Config holds the server's environment configuration
type Config struct {
	Addr        string `env:"PLAYFIELD_ADDR"        envDefault:":8080"`
	StorageType string `env:"STORAGE_TYPE"          envDefault:"memory"`
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`
	AutoMigrate bool   `env:"DATABASE_AUTO_MIGRATE" envDefault:"true"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	// Per remote address limit on player writes; zero disables it
	WriteRateLimit float64 `env:"WRITE_RATE_LIMIT" envDefault:"120"`
	WriteRateBurst int     `env:"WRITE_RATE_BURST" envDefault:"60"`
}

// Load reads dotenv files (default .env; missing files are skipped) into the
// process environment without overriding it, then parses the environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// FromMap parses configuration from an explicit environment
func FromMap(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the selected backend has what it needs
func (c Config) Validate() error {
	switch c.StorageType {
	case StorageMemory:
	case StorageRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL required when STORAGE_TYPE=redis")
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL required when STORAGE_TYPE=postgres")
		}
	default:
		return fmt.Errorf("invalid STORAGE_TYPE %q: must be memory, redis or postgres", c.StorageType)
	}
	if c.WriteRateLimit < 0 || c.WriteRateBurst < 0 {
		return errors.New("WRITE_RATE_LIMIT and WRITE_RATE_BURST must not be negative")
	}
	if c.WriteRateLimit > 0 && c.WriteRateBurst == 0 {
		return errors.New("WRITE_RATE_BURST must be positive when WRITE_RATE_LIMIT is set")
	}
	return nil
}
