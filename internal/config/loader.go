package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if PRESENCE_CONFIG is set
//  3. env (prefix PRESENCE_)
func Load() (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("PRESENCE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: PRESENCE_ADDR, PRESENCE_FAST_INTERVAL_MS, ...
	// Map env keys like PRESENCE_FAST_INTERVAL_MS -> fast_interval_ms.
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PRESENCE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "presence_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.FastIntervalMS <= 0 || c.SlowIntervalMS <= 0 {
		return fmt.Errorf("%w: sampling intervals must be positive", ErrInvalidConfig)
	}
	if c.SubmitAttempts < 1 {
		return fmt.Errorf("%w: submit_attempts must be at least 1", ErrInvalidConfig)
	}
	for _, f := range c.FacingOrder {
		switch f {
		case "environment", "user", "any":
		default:
			return fmt.Errorf("%w: unknown facing %q", ErrInvalidConfig, f)
		}
	}
	return nil
}
