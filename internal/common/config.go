// Package common provides shared utilities for tally
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for tally
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Ledger      LedgerConfig  `toml:"ledger"`
	Logging     LoggingConfig `toml:"logging"`
	Auth        AuthConfig    `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string  `toml:"host"`
	Port         int     `toml:"port"`
	RateLimit    float64 `toml:"rate_limit"` // requests per second per client, 0 disables
	RateBurst    int     `toml:"rate_burst"`
	RateIdle     string  `toml:"rate_idle"`    // idle time before a client's bucket is dropped
	RateClients  int     `toml:"rate_clients"` // most client buckets held at once
	ReadTimeout  string  `toml:"read_timeout"`
	WriteTimeout string  `toml:"write_timeout"`
}

// GetRateIdle parses RateIdle, defaulting to 10 minutes.
func (c ServerConfig) GetRateIdle() time.Duration {
	return parseDurationOr(c.RateIdle, 10*time.Minute)
}

// GetReadTimeout parses ReadTimeout, defaulting to 30 seconds.
func (c ServerConfig) GetReadTimeout() time.Duration {
	return parseDurationOr(c.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout parses WriteTimeout, defaulting to 2 minutes.
func (c ServerConfig) GetWriteTimeout() time.Duration {
	return parseDurationOr(c.WriteTimeout, 2*time.Minute)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "surrealdb" (default) or "memory"
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// LedgerConfig holds reconciliation settings.
type LedgerConfig struct {
	// Timezone is the IANA zone whose calendar days snapshots are keyed on.
	Timezone string `toml:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC.
func (c *LedgerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// AuthConfig holds bearer-token validation settings.
// Tokens are issued elsewhere; tally only verifies them.
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8580,
			RateLimit:    20,
			RateBurst:    40,
			RateIdle:     "10m",
			RateClients:  10000,
			ReadTimeout:  "30s",
			WriteTimeout: "2m",
		},
		Storage: StorageConfig{
			Backend:   "surrealdb",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "tally",
			Database:  "tally",
			Username:  "root",
			Password:  "root",
		},
		Ledger: LedgerConfig{
			Timezone: "UTC",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TALLY_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("TALLY_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("TALLY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("TALLY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("TALLY_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("TALLY_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("TALLY_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("TALLY_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	if tz := os.Getenv("TALLY_TIMEZONE"); tz != "" {
		config.Ledger.Timezone = tz
	}

	if v := os.Getenv("TALLY_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "surrealdb", "memory":
	default:
		return fmt.Errorf("unknown storage backend %q (supported: surrealdb, memory)", c.Storage.Backend)
	}
	for name, v := range map[string]string{
		"server.rate_idle":     c.Server.RateIdle,
		"server.read_timeout":  c.Server.ReadTimeout,
		"server.write_timeout": c.Server.WriteTimeout,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	if c.Ledger.Timezone != "" {
		if _, err := time.LoadLocation(c.Ledger.Timezone); err != nil {
			return fmt.Errorf("invalid ledger timezone %q: %w", c.Ledger.Timezone, err)
		}
	}
	return nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
