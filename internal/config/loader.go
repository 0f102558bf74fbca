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
//  2. file (YAML) if MOMENTUM_CONFIG is set
//  3. env (prefix MOMENTUM_)
func Load() (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("MOMENTUM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MOMENTUM_FORECAST_DAYS, MOMENTUM_SEED, ...
	// Map env keys like MOMENTUM_FORECAST_DAYS -> forecast_days (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MOMENTUM_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "momentum_")
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
	switch {
	case c.ForecastDays < 1:
		return fmt.Errorf("%w: forecast_days must be positive", ErrInvalidConfig)
	case c.Simulations < 1:
		return fmt.Errorf("%w: simulations must be positive", ErrInvalidConfig)
	case c.SimulationStep <= 0 || c.SimulationStep > 1:
		return fmt.Errorf("%w: simulation_step must be in (0,1]", ErrInvalidConfig)
	case c.NoiseLevel < 0:
		return fmt.Errorf("%w: noise_level must not be negative", ErrInvalidConfig)
	case c.CollapseThreshold <= 0:
		return fmt.Errorf("%w: collapse_threshold must be positive", ErrInvalidConfig)
	case c.StateBuckets < 2:
		return fmt.Errorf("%w: state_buckets must be at least 2", ErrInvalidConfig)
	case c.Epsilon < 0 || c.Epsilon > 1:
		return fmt.Errorf("%w: epsilon must be in [0,1]", ErrInvalidConfig)
	}
	return nil
}
