// Package config handles reading and writing .slideforge/config.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level structure for .slideforge/config.yaml.
type Config struct {
	Version    int              `yaml:"version"`
	OutputDir  string           `yaml:"output_dir"`
	Registry   string           `yaml:"registry"`
	Judge      JudgeConfig      `yaml:"judge"`
	Render     RenderConfig     `yaml:"render"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Logging    LoggingConfig    `yaml:"logging"`
	Cleanup    CleanupConfig    `yaml:"cleanup"`
}

// JudgeConfig selects the external judge. An empty command means the canned
// default verdict is used instead.
type JudgeConfig struct {
	Command string `yaml:"command"`
	Model   string `yaml:"model"`
	Timeout int    `yaml:"timeout"` // seconds
}

// RenderConfig describes how a slide is regenerated after a template swap.
// Command is a text/template rendered with .Session, .SessionDir, .Index,
// .TemplateID, .TemplateFile, .Output and .SlideFile, then run with sh -c.
type RenderConfig struct {
	Command string `yaml:"command"`
	Timeout int    `yaml:"timeout"` // seconds
}

// EvaluationConfig controls batch and sequential evaluation.
type EvaluationConfig struct {
	CircuitBreakerThreshold int `yaml:"circuit_breaker_threshold"`
	MaxParallel             int `yaml:"max_parallel"` // 0 = unbounded
}

// LedgerConfig controls the cross-session SQLite ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Mode  string `yaml:"mode"`  // "dev" | "prod"
	Level string `yaml:"level"` // zap level name
}

// CleanupConfig controls pruning of old session directories.
type CleanupConfig struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

const configDir = ".slideforge"
const configFile = "config.yaml"

// Dir returns the config directory for a project root.
func Dir(root string) string {
	return filepath.Join(root, configDir)
}

// ReadConfig reads .slideforge/config.yaml from the given project directory.
// Keys missing from the file keep their DefaultConfig values.
// Returns an error if the file is not found or YAML is malformed.
func ReadConfig(dir string) (*Config, error) {
	path := filepath.Join(dir, configDir, configFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// LoadConfig is ReadConfig that falls back to DefaultConfig when the project
// has no config file.
func LoadConfig(dir string) (*Config, error) {
	cfg, err := ReadConfig(dir)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// WriteConfig writes cfg to .slideforge/config.yaml in the given project
// directory. Creates the .slideforge/ directory if it does not exist.
func WriteConfig(dir string, cfg *Config) error {
	dirPath := filepath.Join(dir, configDir)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}

	path := filepath.Join(dirPath, configFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:   1,
		OutputDir: "output",
		Registry:  "templates/registry.yaml",
		Judge: JudgeConfig{
			Command: "claude",
			Model:   "opus",
			Timeout: 300,
		},
		Render: RenderConfig{
			Timeout: 120,
		},
		Evaluation: EvaluationConfig{
			CircuitBreakerThreshold: 3,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Path:    filepath.Join(configDir, "ledger.db"),
		},
		Logging: LoggingConfig{
			Mode:  "dev",
			Level: "info",
		},
		Cleanup: CleanupConfig{
			MaxAgeDays: 30,
		},
	}
}

// JudgeTimeout returns the judge timeout, zero meaning none.
func (c *Config) JudgeTimeout() time.Duration {
	return time.Duration(c.Judge.Timeout) * time.Second
}

// RenderTimeout returns the render timeout, zero meaning none.
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.Timeout) * time.Second
}
