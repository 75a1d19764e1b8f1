// Package config loads planner.yaml, applies PLANNER_* environment
// overrides and validates the result against an embedded JSON Schema.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "planner.yaml"

// Config holds all planner configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	// External plan validator
	Validator ValidatorConfig `yaml:"validator" json:"validator"`

	// Batch driver
	Batch BatchConfig `yaml:"batch" json:"batch"`

	// Result store
	Store StoreConfig `yaml:"store" json:"store"`

	// Directory watcher
	Watch WatchConfig `yaml:"watch" json:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ValidatorConfig configures the VAL subprocess.
type ValidatorConfig struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Binary    string  `yaml:"binary" json:"binary"`
	Tolerance float64 `yaml:"tolerance" json:"tolerance"`
	Timeout   string  `yaml:"timeout" json:"timeout"`
}

// BatchConfig configures batch runs over instance directories.
type BatchConfig struct {
	// Workers bounds how many instances are solved at once.
	Workers int `yaml:"workers" json:"workers"`

	// SolutionsDir receives .soln files mirroring the instance tree.
	// Empty writes each plan next to its instance.
	SolutionsDir string `yaml:"solutions_dir" json:"solutions_dir"`

	// SlowInstance is the threshold above which a synthesis is logged as slow.
	SlowInstance string `yaml:"slow_instance" json:"slow_instance"`
}

// StoreConfig configures the SQLite result store.
type StoreConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// WatchConfig configures the problem directory watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce" json:"debounce"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "planner",
		Version: "0.3.0",

		Validator: ValidatorConfig{
			Enabled:   false,
			Binary:    "Validate",
			Tolerance: 0.001,
			Timeout:   "60s",
		},

		Batch: BatchConfig{
			Workers:      1,
			SlowInstance: "2s",
		},

		Store: StoreConfig{
			Enabled:      true,
			DatabasePath: ".planner/results.db",
		},

		Watch: WatchConfig{
			Debounce: "300ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Return defaults if config file doesn't exist
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if bin := os.Getenv("PLANNER_VAL_BINARY"); bin != "" {
		c.Validator.Binary = bin
		c.Validator.Enabled = true
	}

	if path := os.Getenv("PLANNER_DB"); path != "" {
		c.Store.DatabasePath = path
	}

	// Unparseable worker counts are left for Validate to report.
	if w := os.Getenv("PLANNER_WORKERS"); w != "" {
		if n, err := strconv.Atoi(w); err == nil {
			c.Batch.Workers = n
		}
	}

	if level := os.Getenv("PLANNER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetValidatorTimeout returns the VAL timeout as a duration.
func (c *Config) GetValidatorTimeout() time.Duration {
	d, err := time.ParseDuration(c.Validator.Timeout)
	if err != nil {
		return 60 * time.Second
	}
	return d
}

// GetSlowInstanceThreshold returns the slow synthesis threshold.
func (c *Config) GetSlowInstanceThreshold() time.Duration {
	d, err := time.ParseDuration(c.Batch.SlowInstance)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// GetWatchDebounce returns the watcher debounce interval.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 300 * time.Millisecond
	}
	return d
}

// GetWorkers returns the batch worker count, at least 1.
func (c *Config) GetWorkers() int {
	if c.Batch.Workers < 1 {
		return 1
	}
	return c.Batch.Workers
}
