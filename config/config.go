// Package config loads the service configuration from QUESTOR_* environment variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const envPrefix = "QUESTOR_"

// Store drivers
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Config holds every setting read at startup
type Config struct {
	HTTPAddr         string        `env:"HTTP_ADDR"          envDefault:":9000"`
	JWTSecret        string        `env:"JWT_SECRET,required,notEmpty"`
	SessionTTL       time.Duration `env:"SESSION_TTL"        envDefault:"24h"`
	StoreDriver      string        `env:"STORE_DRIVER"       envDefault:"redis"`
	RedisURL         string        `env:"REDIS_URL"          envDefault:"redis://localhost:6379/0"`
	DatabaseURL      string        `env:"DATABASE_URL"`
	StoreDialTimeout time.Duration `env:"STORE_DIAL_TIMEOUT" envDefault:"5s"`
	EventsEnabled    bool          `env:"EVENTS_ENABLED"     envDefault:"true"`
	LogLevel         string        `env:"LOG_LEVEL"          envDefault:"info"`
	GinMode          string        `env:"GIN_MODE"           envDefault:"release"`
}

// Load parses the configuration. A nil environ reads the process environment.
func Load(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{Prefix: envPrefix, Environment: environ}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the combinations the tags cannot express
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%sREDIS_URL is required for the redis store", envPrefix)
		}
	case StorePostgres, StoreSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%sDATABASE_URL is required for the %s store", envPrefix, c.StoreDriver)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("%sSESSION_TTL must be positive", envPrefix)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin mode %q", c.GinMode)
	}
	return nil
}

// SlogLevel converts LogLevel to a slog.Level
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
