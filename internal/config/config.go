// Package config provides configuration types, defaults, and persistence
// for regswap.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zjrosen/regswap/internal/tracing"
)

// HistoryConfig holds run-history persistence options.
type HistoryConfig struct {
	// Enabled controls whether substitution runs are recorded.
	Enabled bool `mapstructure:"enabled"`

	// Path is the SQLite database file for run history.
	// Default: .regswap/history.db
	Path string `mapstructure:"path"`
}

// Config holds all configuration options for regswap.
type Config struct {
	Debug   bool           `mapstructure:"debug"`
	LogFile string         `mapstructure:"log_file"`
	History HistoryConfig  `mapstructure:"history"`
	Tracing tracing.Config `mapstructure:"tracing"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		Debug:   false,
		LogFile: ".regswap/debug.log",
		History: HistoryConfig{
			Enabled: false,
			Path:    ".regswap/history.db",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// defaultConfigTemplate is written when no config file exists anywhere.
const defaultConfigTemplate = `# regswap configuration
debug: false
log_file: .regswap/debug.log

history:
  enabled: false
  path: .regswap/history.db

tracing:
  enabled: false
  exporter: file
  file_path: .regswap/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
  service_name: regswap
`

// WriteDefaultConfig writes the default config file to path, creating
// parent directories as needed. It refuses to overwrite an existing file.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
