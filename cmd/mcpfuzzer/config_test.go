package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcourtman/mcp-fuzzer/internal/config"
)

func TestLoadConfigDefaultsWithNoFile(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.TransportHTTP, cfg.Transport.Kind)
	assert.Equal(t, config.ModeAll, cfg.Fuzz.Mode)
}

func TestLoadConfigReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("transport:\n  kind: stdio\n  command: [\"./server\"]\nfuzz:\n  mode: tools\n  runs: 7\n")
	require.NoError(t, os.WriteFile(path, yaml, 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.TransportStdio, cfg.Transport.Kind)
	assert.Equal(t, []string{"./server"}, cfg.Transport.Command)
	assert.Equal(t, config.ModeTools, cfg.Fuzz.Mode)
	assert.Equal(t, 7, cfg.Fuzz.Runs)
}

func TestLoadConfigMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().Fuzz.Mode, cfg.Fuzz.Mode)
}

func TestApplyEnvOverridesTakesPrecedenceOverDefaults(t *testing.T) {
	t.Setenv("MCPFUZZER_TRANSPORT_KIND", "sse")
	t.Setenv("MCPFUZZER_ENDPOINT", "https://example.test/mcp")
	t.Setenv("MCPFUZZER_RUNS", "42")
	t.Setenv("MCPFUZZER_ALLOWED_HOSTS", "a.test,b.test")

	cfg := config.Default()
	applyEnvOverrides(&cfg)

	assert.Equal(t, config.TransportSSE, cfg.Transport.Kind)
	assert.Equal(t, "https://example.test/mcp", cfg.Transport.Endpoint)
	assert.Equal(t, 42, cfg.Fuzz.Runs)
	assert.Equal(t, []string{"a.test", "b.test"}, cfg.Safety.AllowedHosts)
}

func TestApplyEnvOverridesIgnoresUnsetVars(t *testing.T) {
	cfg := config.Default()
	want := cfg.Fuzz.Runs
	applyEnvOverrides(&cfg)
	assert.Equal(t, want, cfg.Fuzz.Runs)
}
