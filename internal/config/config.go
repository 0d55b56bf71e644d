// Package config loads service configuration from the environment, with an
// optional YAML file supplying per-deployment defaults.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the runtime configuration for inboxd.
type Config struct {
	WebhookSecret string `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	DatabasePath  string `yaml:"database_path" env:"DATABASE_PATH"`
	LogLevel      string `yaml:"log_level" env:"LOG_LEVEL"`
	Host          string `yaml:"host" env:"HTTP_HOST"`
	Port          int    `yaml:"port" env:"HTTP_PORT"`
}

// Defaults returns the baseline configuration. The webhook secret has no
// default: every deployment must provide its own.
func Defaults() *Config {
	return &Config{
		DatabasePath: "data/inboxd.db",
		LogLevel:     "info",
		Host:         "0.0.0.0",
		Port:         8080,
	}
}

// Load builds the configuration in layers: defaults, then the optional YAML
// file, then the environment (a .env file is honored when present).
// Environment values win over file values.
func Load(file string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", file, err)
		}
	}
	if _, err := env.UnmarshalFromEnviron(cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces startup invariants. A missing webhook secret aborts
// startup entirely.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.WebhookSecret) == "" {
		return fmt.Errorf("WEBHOOK_SECRET must be set and non-empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// Addr is the host:port the HTTP server binds.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SlogLevel maps the configured verbosity to a slog level. Unknown values
// fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
