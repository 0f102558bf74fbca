// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...Option) initializer to build a Config with defaults.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr configures the Prometheus listen address, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr"`

	// ForecastDays is the default projection horizon.
	ForecastDays int `koanf:"forecast_days"`

	// Simulations sets the Monte-Carlo run count per forecast.
	Simulations int `koanf:"simulations"`

	// SimulationWorkers bounds concurrent simulation runs.
	SimulationWorkers int `koanf:"simulation_workers"`

	// SimulationStep is the sub-day integration step in days.
	SimulationStep float64 `koanf:"simulation_step"`

	// NoiseLevel is the base diffusion magnitude of the stochastic model.
	NoiseLevel float64 `koanf:"noise_level"`

	// CollapseThreshold is the momentum level counted as collapse.
	CollapseThreshold float64 `koanf:"collapse_threshold"`

	// Seed makes simulation and policy streams reproducible.
	Seed int64 `koanf:"seed"`

	// MinEvidence gates fitted posterior predictions.
	MinEvidence int `koanf:"min_evidence"`

	// StateBuckets sets the per-dimension Q-table discretization.
	StateBuckets int `koanf:"state_buckets"`

	// Epsilon is the initial exploration rate of the strategy policy.
	Epsilon float64 `koanf:"epsilon"`

	// LearningRate and DiscountFactor tune the Q-learning updates.
	LearningRate   float64 `koanf:"learning_rate"`
	DiscountFactor float64 `koanf:"discount_factor"`

	// BifurcationThreshold sets catastrophe proximity sensitivity.
	BifurcationThreshold float64 `koanf:"bifurcation_threshold"`
}

// New creates a Config with engine defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		MetricsAddr:          ":9090",
		ForecastDays:         30,
		Simulations:          100,
		SimulationWorkers:    runtime.NumCPU(),
		SimulationStep:       0.1,
		NoiseLevel:           0.5,
		CollapseThreshold:    20,
		Seed:                 42,
		MinEvidence:          10,
		StateBuckets:         10,
		Epsilon:              0.2,
		LearningRate:         0.1,
		DiscountFactor:       0.95,
		BifurcationThreshold: 0.1,
	}
}
