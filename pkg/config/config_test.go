package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MinimalConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

workspace:
  root: "` + tmpDir + `"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected default addr ':8080', got %q", cfg.Server.Addr)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Feed.Type != "memory" {
		t.Errorf("Expected default feed type 'memory', got %q", cfg.Feed.Type)
	}
	if cfg.Archive.Type != "none" {
		t.Errorf("Expected default archive type 'none', got %q", cfg.Archive.Type)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "debug"
  format: "json"
  output: "stderr"

server:
  addr: ":9090"
  shutdown_timeout: 10s
  rate_limit: 100
  rate_burst: 200

workspace:
  root: "` + tmpDir + `"

feed:
  type: "badger"
  badger:
    path: "` + filepath.Join(tmpDir, "journal") + `"

archive:
  type: "filesystem"
  filesystem:
    path: "` + filepath.Join(tmpDir, "archive") + `"

metrics:
  enabled: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Expected addr ':9090', got %q", cfg.Server.Addr)
	}
	if cfg.Server.RateLimit != 100 || cfg.Server.RateBurst != 200 {
		t.Errorf("Expected rate 100/200, got %d/%d", cfg.Server.RateLimit, cfg.Server.RateBurst)
	}
	if cfg.Feed.Type != "badger" {
		t.Errorf("Expected feed type 'badger', got %q", cfg.Feed.Type)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled")
	}
}

func TestLoad_MissingWorkspaceRoot(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for missing workspace root, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

workspace:
  root: "` + tmpDir + `"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("ACLFS_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected env override 'ERROR', got %q", cfg.Logging.Level)
	}
}
