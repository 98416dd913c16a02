// Package config loads process configuration from defaults, an optional
// YAML file, and DERBYRUSH_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config contains all process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// FinishLine is the position a racer must reach to win. Track length
	// varies by deployment; short party tracks use 100, long ones 300.
	FinishLine int `koanf:"finish_line"`

	// CountdownSeconds is the delay between countdown-start and race-started.
	CountdownSeconds int `koanf:"countdown_seconds"`

	// Pot is the total pari-mutuel pot in points.
	Pot int `koanf:"pot"`

	// QueueSize bounds the game engine's event queue.
	QueueSize int `koanf:"queue_size"`

	// OpenBrowser opens the host display in the local browser on startup.
	OpenBrowser bool `koanf:"open_browser"`

	// HTTPLogging enables per-request HTTP logging.
	HTTPLogging bool `koanf:"http_logging"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		Addr:             ":3000",
		LogLevel:         "info",
		FinishLine:       100,
		CountdownSeconds: 3,
		Pot:              100000,
		QueueSize:        256,
		OpenBrowser:      false,
		HTTPLogging:      false,
	}
}

// Countdown returns the countdown delay as a duration.
func (c *Config) Countdown() time.Duration {
	return time.Duration(c.CountdownSeconds) * time.Second
}

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if path is non-empty
//  3. env (prefix DERBYRUSH_, e.g. DERBYRUSH_FINISH_LINE=300)
func Load(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Map env keys like DERBYRUSH_FINISH_LINE -> finish_line (flat keys,
	// underscores preserved to match the koanf tags).
	envProvider := env.Provider("DERBYRUSH_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "derbyrush_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.FinishLine <= 0 {
		return fmt.Errorf("finish_line must be positive, got %d", c.FinishLine)
	}
	if c.CountdownSeconds < 0 {
		return fmt.Errorf("countdown_seconds must not be negative, got %d", c.CountdownSeconds)
	}
	if c.Pot <= 0 {
		return fmt.Errorf("pot must be positive, got %d", c.Pot)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	return nil
}

// EnvConfigPath returns the config file path from DERBYRUSH_CONFIG, if set.
func EnvConfigPath() string {
	return os.Getenv("DERBYRUSH_CONFIG")
}
