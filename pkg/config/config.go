package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete ACLFS configuration.
//
// This structure captures all configurable aspects of the ACLFS server
// including:
//   - Logging configuration
//   - HTTP server settings (address, shutdown, rate limiting)
//   - Workspace location (the directory holding the datasites)
//   - Change-feed journal selection and configuration (store-specific)
//   - Policy archive selection and configuration (store-specific)
//   - Metrics toggle
//
// Configuration sources (in order of precedence):
//  1. Environment variables (ACLFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each journal and archive implementation defines its own options. The
// Config struct contains type-specific sections (e.g., feed.badger,
// archive.s3) and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains HTTP server settings
	Server ServerConfig `mapstructure:"server"`

	// Workspace locates the datasite tree on disk
	Workspace WorkspaceConfig `mapstructure:"workspace"`

	// Feed specifies the change-feed journal type and its configuration
	Feed FeedConfig `mapstructure:"feed"`

	// Archive specifies the policy version archive type and its configuration
	Archive ArchiveConfig `mapstructure:"archive"`

	// Metrics toggles the Prometheus registry and /metrics endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address (e.g., ":8080")
	Addr string `mapstructure:"addr" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// RateLimit is the sustained API request rate per second (0 = unlimited)
	RateLimit uint `mapstructure:"rate_limit"`

	// RateBurst is the token bucket capacity for request bursts
	RateBurst uint `mapstructure:"rate_burst"`
}

// WorkspaceConfig locates the datasite tree.
type WorkspaceConfig struct {
	// Root is the directory whose first-level subdirectories are datasites
	Root string `mapstructure:"root" validate:"required"`
}

// FeedConfig specifies change-feed journal configuration.
//
// The Type field determines which journal implementation is used.
// Only the corresponding type-specific configuration section is used.
type FeedConfig struct {
	// Type specifies which journal implementation to use
	// Valid values: memory, badger
	Type string `mapstructure:"type" validate:"required,oneof=memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// ArchiveConfig specifies policy archive configuration.
//
// The Type field determines which archive implementation is used.
// Only the corresponding type-specific configuration section is used.
type ArchiveConfig struct {
	// Type specifies which archive implementation to use
	// Valid values: none, filesystem, s3
	Type string `mapstructure:"type" validate:"required,oneof=none filesystem s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// MetricsConfig toggles Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns on the registry and the /metrics endpoint
	Enabled bool `mapstructure:"enabled"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (ACLFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the ACLFS_ prefix and underscores.
	// Example: ACLFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("ACLFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/aclfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists. A missing
// file is acceptable; defaults and environment variables still apply.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to
// the current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "aclfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "aclfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
