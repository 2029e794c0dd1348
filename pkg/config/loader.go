// pkg/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix    = "OPTIGATE_"
	configEnvVar = "OPTIGATE_CONFIG"
)

// Loader merges configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (env wins).
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
	envPrefix   string
}

// NewLoader creates a configuration loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"optigate.yaml",
			"config/optigate.yaml",
			"/etc/optigate/config.yaml",
		},
		envPrefix: envPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption customizes a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths sets the file search paths.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// Load resolves the configuration.
//
// Order: built-in defaults, then the first existing YAML file (or the
// file named by OPTIGATE_CONFIG), then OPTIGATE_* environment variables
// with "_" mapped to the "." key separator (double underscore escapes a
// literal underscore inside a key).
func (l *Loader) Load() (*Config, error) {
	defaults := Default()
	if err := l.k.Load(confmap.Provider(flatten(defaults), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := l.resolveConfigPath(); path != "" {
		if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := l.k.Load(env.Provider(l.envPrefix, ".", func(s string) string {
		key := strings.TrimPrefix(s, l.envPrefix)
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "__", "~")
		key = strings.ReplaceAll(key, "_", ".")
		return strings.ReplaceAll(key, "~", "_")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := l.k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// resolveConfigPath returns the config file to load, or "".
func (l *Loader) resolveConfigPath() string {
	if path := os.Getenv(configEnvVar); path != "" {
		return path
	}
	for _, path := range l.configPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load resolves configuration using a default loader.
func Load() (*Config, error) {
	return NewLoader().Load()
}

// flatten converts a Config into the flat key map the confmap provider expects.
func flatten(c *Config) map[string]any {
	return map[string]any{
		"app.name":                c.App.Name,
		"app.version":             c.App.Version,
		"app.environment":         c.App.Environment,
		"app.debug":               c.App.Debug,
		"log.level":               c.Log.Level,
		"log.format":              c.Log.Format,
		"log.output":              c.Log.Output,
		"log.file_path":           c.Log.FilePath,
		"log.max_size":            c.Log.MaxSize,
		"log.max_backups":         c.Log.MaxBackups,
		"log.max_age":             c.Log.MaxAge,
		"log.compress":            c.Log.Compress,
		"metrics.enabled":         c.Metrics.Enabled,
		"metrics.namespace":       c.Metrics.Namespace,
		"metrics.subsystem":       c.Metrics.Subsystem,
		"solver.time_limit":       c.Solver.TimeLimit,
		"solver.iteration_limit":  c.Solver.IterationLimit,
		"solver.candidate_cap":    c.Solver.CandidateCap,
		"solver.memory_limit":     c.Solver.MemoryLimit,
		"solver.auction_epsilon":  c.Solver.AuctionEpsilon,
		"solver.knapsack_dp_limit": c.Solver.KnapsackDPLimit,
		"cache.enabled":           c.Cache.Enabled,
		"cache.max_entries":       c.Cache.MaxEntries,
		"cache.ttl":               c.Cache.TTL,
		"gate.review_threshold":   c.Gate.ReviewThreshold,
		"gate.probe_instability":  c.Gate.ProbeInstability,
		"gate.determinism_probes": c.Gate.DeterminismProbes,
	}
}
