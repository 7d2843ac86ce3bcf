package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/wardtrace/internal/config"
)

// inEmptyDir runs the test from a directory without a config.yaml.
func inEmptyDir(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestConfigDefaults(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("WARDTRACE_STORE_BACKEND", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendFile, cfg.Store.Backend)
	assert.NotEmpty(t, cfg.Store.DataDir)
	assert.Equal(t, "neo4j://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, "neo4j", cfg.Neo4j.Database)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Claude.Model)
	assert.Equal(t, config.DefaultTraceWindowHours, cfg.Trace.DefaultWindowHours)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestConfigEnvOverride(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("WARDTRACE_STORE_BACKEND", "neo4j")
	t.Setenv("WARDTRACE_NEO4J_URI", "neo4j://graph.example.com:7687")
	t.Setenv("WARDTRACE_API_AUTH_TOKEN", "s3cret")
	t.Setenv("ANTHROPIC_API_KEY", "test-key-12345")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.BackendNeo4j, cfg.Store.Backend)
	assert.Equal(t, "neo4j://graph.example.com:7687", cfg.Neo4j.URI)
	assert.Equal(t, "s3cret", cfg.API.AuthToken)
	assert.Equal(t, "test-key-12345", cfg.Claude.APIKey)
}

func TestConfigFile(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("WARDTRACE_STORE_BACKEND", "")
	t.Setenv("WARDTRACE_STORE_DATA_DIR", "")
	yaml := "store:\n  backend: file\n  data_dir: ./facility\ntrace:\n  default_window_hours: 12\n"
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o600))

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "./facility", cfg.Store.DataDir)
	assert.Equal(t, 12, cfg.Trace.DefaultWindowHours)
}

func TestConfigInvalidBackendFailsLoad(t *testing.T) {
	inEmptyDir(t)
	t.Setenv("WARDTRACE_STORE_BACKEND", "sqlite")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
}

func TestConfigStringMasksSecrets(t *testing.T) {
	c := config.ClaudeConfig{APIKey: "sk-ant-1234567890abcdef", Model: "claude-haiku-4-5-20251001"}
	assert.Contains(t, c.String(), "sk-a")
	assert.NotContains(t, c.String(), "1234567890")

	n := config.Neo4jConfig{URI: "neo4j://db:7687", Username: "neo4j", Password: "hunter2-long-password"}
	assert.NotContains(t, n.String(), "hunter2-long")
	assert.Contains(t, n.String(), "neo4j://db:7687")
}
