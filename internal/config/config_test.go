package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.Server.ListenAddr)
	require.Equal(t, "memory", cfg.Store.Backend)
	require.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	require.Equal(t, 4, cfg.Pipeline.WorkerCount)
	require.True(t, cfg.Metrics.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_addr: ":9090"
store:
  backend: sqlite
  sqlite_path: /tmp/jobs.db
pipeline:
  max_attempts: 5
  provider_timeout: 30s
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.ListenAddr)
	require.Equal(t, "sqlite", cfg.Store.Backend)
	require.Equal(t, "/tmp/jobs.db", cfg.Store.SQLitePath)
	require.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	require.Equal(t, 30*time.Second, cfg.Pipeline.ProviderTimeout)
	require.Equal(t, "debug", cfg.Log.Level)

	// Untouched fields keep their defaults.
	require.Equal(t, 4, cfg.Pipeline.WorkerCount)
	require.Equal(t, 1024, cfg.Pipeline.QueueCapacity)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: cassandra
`)
	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cassandra")
}

func TestLoad_RejectsNonPositiveLimits(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  max_attempts: 0
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "{not yaml")
	_, err := Load(path)
	require.Error(t, err)
}
