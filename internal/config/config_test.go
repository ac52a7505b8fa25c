package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfigYAMLRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Evaluation.CircuitBreakerThreshold = 5
	cfg.Render.Command = "node render.js {{.SlideFile}} {{.Output}}"

	if err := WriteConfig(tmpDir, cfg); err != nil {
		t.Fatalf("WriteConfig failed: %v", err)
	}

	loaded, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}

	if loaded.Evaluation.CircuitBreakerThreshold != 5 {
		t.Errorf("CircuitBreakerThreshold: got %d, want 5", loaded.Evaluation.CircuitBreakerThreshold)
	}
	if loaded.Render.Command != cfg.Render.Command {
		t.Errorf("Render.Command: got %q, want %q", loaded.Render.Command, cfg.Render.Command)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Evaluation.CircuitBreakerThreshold != 3 {
		t.Errorf("default CircuitBreakerThreshold: got %d, want 3", cfg.Evaluation.CircuitBreakerThreshold)
	}
	if cfg.Judge.Command != "claude" {
		t.Errorf("default Judge.Command: got %q, want %q", cfg.Judge.Command, "claude")
	}
	if cfg.JudgeTimeout() != 5*time.Minute {
		t.Errorf("JudgeTimeout: got %v, want 5m", cfg.JudgeTimeout())
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	partial := `version: 1
registry: deck/templates
judge:
  command: ""
`
	if err := os.MkdirAll(filepath.Join(tmpDir, ".slideforge"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".slideforge", "config.yaml"), []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := ReadConfig(tmpDir)
	if err != nil {
		t.Fatalf("ReadConfig failed: %v", err)
	}
	if cfg.Registry != "deck/templates" {
		t.Errorf("Registry: got %q", cfg.Registry)
	}
	if cfg.Judge.Command != "" {
		t.Errorf("Judge.Command: got %q, want explicit empty", cfg.Judge.Command)
	}
	if cfg.Judge.Model != "opus" {
		t.Errorf("Judge.Model: got %q, want default opus", cfg.Judge.Model)
	}
	if cfg.Cleanup.MaxAgeDays != 30 {
		t.Errorf("Cleanup.MaxAgeDays: got %d, want 30", cfg.Cleanup.MaxAgeDays)
	}
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.OutputDir != "output" {
		t.Errorf("OutputDir: got %q, want output", cfg.OutputDir)
	}

	if _, err := ReadConfig(t.TempDir()); err == nil {
		t.Error("ReadConfig should fail without a config file")
	}
}

func TestMalformedConfig(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, ".slideforge"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".slideforge", "config.yaml"), []byte("judge: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(tmpDir); err == nil {
		t.Error("expected parse error")
	}
}
