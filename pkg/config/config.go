// pkg/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration of the optimization core.
//
// Every field has a working default; configuration is optional and all
// kernels accept explicit parameters that bypass it entirely.
type Config struct {
	App     AppConfig     `koanf:"app"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Solver  SolverConfig  `koanf:"solver"`
	Cache   CacheConfig   `koanf:"cache"`
	Gate    GateConfig    `koanf:"gate"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `koanf:"level"`  // debug, info, warn, error
	Format     string `koanf:"format"` // json, text
	Output     string `koanf:"output"` // stdout, stderr, file
	FilePath   string `koanf:"file_path"`
	MaxSize    int    `koanf:"max_size"` // MB
	MaxBackups int    `koanf:"max_backups"`
	MaxAge     int    `koanf:"max_age"` // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig holds Prometheus metric settings.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// SolverConfig holds kernel settings loaded and validated with the
// rest of the configuration. The engine does not read them; solves take
// their limits from each ProblemSpec's budgets.
type SolverConfig struct {
	TimeLimit       time.Duration `koanf:"time_limit"`
	IterationLimit  int           `koanf:"iteration_limit"`
	CandidateCap    int           `koanf:"candidate_cap"`
	MemoryLimit     int64         `koanf:"memory_limit"` // bytes, 0 = unlimited
	AuctionEpsilon  int64         `koanf:"auction_epsilon"`
	KnapsackDPLimit int64         `koanf:"knapsack_dp_limit"` // max capacity for DP table
}

// CacheConfig holds plan-cache settings.
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	MaxEntries int           `koanf:"max_entries"`
	TTL        time.Duration `koanf:"ttl"`
}

// GateConfig holds promotion-gate thresholds.
type GateConfig struct {
	ReviewThreshold   float64 `koanf:"review_threshold"`   // confidence below this needs review
	ProbeInstability  float64 `koanf:"probe_instability"`  // validated only; the engine multiplies by gate.InstabilityPenalty on probe mismatch
	DeterminismProbes bool    `koanf:"determinism_probes"` // run the double-solve probe
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:        "optigate",
			Version:     "dev",
			Environment: "development",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "optigate",
			Subsystem: "solver",
		},
		Solver: SolverConfig{
			TimeLimit:       30 * time.Second,
			IterationLimit:  100_000,
			CandidateCap:    1_000,
			MemoryLimit:     0,
			AuctionEpsilon:  1,
			KnapsackDPLimit: 1_000_000,
		},
		Cache: CacheConfig{
			Enabled:    false,
			MaxEntries: 1024,
			TTL:        10 * time.Minute,
		},
		Gate: GateConfig{
			ReviewThreshold:   0.5,
			ProbeInstability:  0.5,
			DeterminismProbes: true,
		},
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Solver.TimeLimit <= 0 {
		return fmt.Errorf("solver.time_limit must be positive, got %v", c.Solver.TimeLimit)
	}
	if c.Solver.IterationLimit <= 0 {
		return fmt.Errorf("solver.iteration_limit must be positive, got %d", c.Solver.IterationLimit)
	}
	if c.Solver.CandidateCap <= 0 {
		return fmt.Errorf("solver.candidate_cap must be positive, got %d", c.Solver.CandidateCap)
	}
	if c.Solver.AuctionEpsilon <= 0 {
		return fmt.Errorf("solver.auction_epsilon must be positive, got %d", c.Solver.AuctionEpsilon)
	}
	if c.Gate.ReviewThreshold < 0 || c.Gate.ReviewThreshold > 1 {
		return fmt.Errorf("gate.review_threshold must be in [0,1], got %f", c.Gate.ReviewThreshold)
	}
	if c.Gate.ProbeInstability <= 0 || c.Gate.ProbeInstability > 1 {
		return fmt.Errorf("gate.probe_instability must be in (0,1], got %f", c.Gate.ProbeInstability)
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level)
	}
	return nil
}
