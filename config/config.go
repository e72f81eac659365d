// Package config loads the platform configuration from defaults, an
// optional YAML file, and environment variable overrides, in that order.
package config

import (
	"fmt"
	"strings"

	"github.com/rasad8686/agentcore/internal/cache"
	"github.com/rasad8686/agentcore/internal/database"
	"github.com/rasad8686/agentcore/orchestrator"
)

// Config is the complete platform configuration.
type Config struct {
	// Log tunes the zap logger.
	Log LogConfig `yaml:"log" env:"LOG"`

	// Database is the durable store connection.
	Database database.Config `yaml:"database" env:"DATABASE"`

	// Cache is the redis workflow-definition cache. Disabled unless
	// CacheEnabled is set.
	CacheEnabled bool         `yaml:"cache_enabled" env:"CACHE_ENABLED"`
	Cache        cache.Config `yaml:"cache" env:"CACHE"`

	// Metrics controls prometheus registration.
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`

	// Orchestrator carries the engine, executor, and memory settings.
	Orchestrator orchestrator.Config `yaml:"orchestrator" env:"ORCHESTRATOR"`
}

// LogConfig tunes the zap logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" env:"LEVEL"`
	// Format is json or console.
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths are zap sink URLs; defaults to stderr.
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// EnableCaller annotates entries with their call site.
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
}

// MetricsConfig controls prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:       "info",
			Format:      "json",
			OutputPaths: []string{"stderr"},
		},
		Database: database.DefaultConfig(),
		Cache:    cache.DefaultConfig(),
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "agentcore",
		},
		Orchestrator: orchestrator.DefaultConfig(),
	}
}

// Validate rejects configurations the platform cannot run with.
func (c *Config) Validate() error {
	var errs []string

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level: %s", c.Log.Level))
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format: %s", c.Log.Format))
	}
	if c.Database.DSN == "" {
		errs = append(errs, "database DSN is required")
	}
	if c.CacheEnabled && c.Cache.Addr == "" {
		errs = append(errs, "cache address is required when the cache is enabled")
	}
	if c.Orchestrator.MaxConcurrentExecutions < 0 {
		errs = append(errs, "max_concurrent_executions cannot be negative")
	}
	if c.Orchestrator.Engine.MaxRetries < 0 {
		errs = append(errs, "max_retries cannot be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
