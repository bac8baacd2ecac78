package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// === Unit Tests: Defaults ===

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.False(t, cfg.Debug)
	require.Equal(t, ".regswap/debug.log", cfg.LogFile)
	require.False(t, cfg.History.Enabled)
	require.Equal(t, ".regswap/history.db", cfg.History.Path)
	require.False(t, cfg.Tracing.Enabled)
	require.Equal(t, "file", cfg.Tracing.Exporter)
}

// === Unit Tests: WriteDefaultConfig ===

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".regswap", "config.yaml")

	err := WriteDefaultConfig(path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "history:")
	require.Contains(t, string(data), "tracing:")

	// The template must parse as YAML matching the config shape.
	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	require.Contains(t, parsed, "debug")
	require.Contains(t, parsed, "log_file")
}

func TestWriteDefaultConfig_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0600))

	err := WriteDefaultConfig(path)
	require.Error(t, err, "an existing config must not be clobbered")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "debug: true\n", string(data))
}
