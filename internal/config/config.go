// Package config loads process configuration from the environment.
//
// Every variable is prefixed WALLETD_ and has a working default, so a
// bare invocation runs against a local database with text logs.
package config

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration.
type Config struct {
	// DBPath is the SQLite database file. Created on first open.
	DBPath string `env:"WALLETD_DB" envDefault:"walletd.db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel slog.Level `env:"WALLETD_LOG_LEVEL" envDefault:"info"`

	// LogFormat is text or json.
	LogFormat string `env:"WALLETD_LOG_FORMAT" envDefault:"text"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return Config{}, fmt.Errorf("WALLETD_LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}
	return cfg, nil
}

// Logger builds a slog.Logger on w per the configured level and format.
func (c Config) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
