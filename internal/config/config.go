// Package config loads codeatlas configuration from .atlas/config.json
// in the workspace, with environment overrides for the handful of values
// scripts commonly need to pin.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all codeatlas configuration.
type Config struct {
	Name string `json:"name"`

	Ledger  LedgerConfig  `json:"ledger"`
	Retry   RetryConfig   `json:"retry"`
	Pause   PauseConfig   `json:"pause"`
	Logging LoggingConfig `json:"logging"`
}

// LedgerConfig configures evidence persistence.
type LedgerConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `json:"driver"`
	// Path of the sqlite database, relative to the workspace.
	Path string `json:"path"`
}

// RetryConfig is the default policy compose applies when a retry node
// does not pin its own.
type RetryConfig struct {
	MaxAttempts int `json:"max_attempts"`
	BaseDelayMs int `json:"base_delay_ms"`
}

// PauseConfig defaults for human escalation gates.
type PauseConfig struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	TimeoutMs           int64   `json:"timeout_ms"`
}

// LoggingConfig mirrors the logging package's expectations; the logging
// package reads it directly from the same file.
type LoggingConfig struct {
	DebugMode  bool            `json:"debug_mode"`
	Categories map[string]bool `json:"categories"`
	Level      string          `json:"level"`
	JSONFormat bool            `json:"json_format"`
}

// Default returns the configuration used when no config file exists.
func Default() Config {
	return Config{
		Name: "codeatlas",
		Ledger: LedgerConfig{
			Driver: "sqlite",
			Path:   filepath.Join(".atlas", "evidence.db"),
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelayMs: 100,
		},
		Pause: PauseConfig{
			ConfidenceThreshold: 0.6,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the workspace config, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(workspace string) (Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, ".atlas", "config.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides lets scripts pin values without editing the file.
func applyEnvOverrides(cfg *Config) {
	if path := os.Getenv("ATLAS_LEDGER_PATH"); path != "" {
		cfg.Ledger.Path = path
	}
	if driver := os.Getenv("ATLAS_LEDGER_DRIVER"); driver != "" {
		cfg.Ledger.Driver = driver
	}
	if debug := os.Getenv("ATLAS_DEBUG"); debug != "" {
		if v, err := strconv.ParseBool(debug); err == nil {
			cfg.Logging.DebugMode = v
		}
	}
	if level := os.Getenv("ATLAS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if threshold := os.Getenv("ATLAS_PAUSE_THRESHOLD"); threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			cfg.Pause.ConfidenceThreshold = v
		}
	}
}

// RetryBaseDelay returns the configured base delay as a duration.
func (c RetryConfig) RetryBaseDelay() time.Duration {
	return time.Duration(c.BaseDelayMs) * time.Millisecond
}

// LedgerPath resolves the ledger path against the workspace.
func (c LedgerConfig) LedgerPath(workspace string) string {
	if filepath.IsAbs(c.Path) {
		return c.Path
	}
	return filepath.Join(workspace, c.Path)
}
