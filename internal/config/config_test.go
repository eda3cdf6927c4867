package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchDocumentedLiterals(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 8090, cfg.Server.HTTPPort)
	assert.True(t, cfg.Server.Stdio)

	assert.Equal(t, 1*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 60*time.Second, cfg.Session.ScavengeInterval)
	assert.Equal(t, 1000, cfg.Session.MaxSessions)
	assert.Equal(t, int64(256*1024*1024), cfg.Session.MaxMemoryBytes)
	assert.Equal(t, 100*1024*1024, int(cfg.Session.MaxContextBytes))

	assert.Equal(t, 10000, cfg.Cache.ChunkCacheEntries)
	assert.Equal(t, 100000, cfg.Cache.MaxChunks)

	assert.Equal(t, 1000*time.Millisecond, cfg.Search.RegexBudget)
	assert.Equal(t, 500, cfg.Search.MaxPatternLen)

	assert.Equal(t, 30*time.Second, cfg.Sandbox.TimeBudget)
	assert.Equal(t, 50000, cfg.Sandbox.OutputCap)

	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, 10, cfg.Storage.MaxSnapshots)

	assert.Equal(t, 50.0, cfg.RateLimit.RPS)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
}

func TestLoadWithoutConfigFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Setenv("RLM_SERVER_HTTP_PORT", "9999")
	t.Setenv("RLM_SESSION_MAX_SESSIONS", "42")
	t.Setenv("RLM_STORAGE_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, 42, cfg.Session.MaxSessions)
	assert.True(t, cfg.Storage.Enabled)

	// Untouched fields keep their defaults.
	assert.Equal(t, 10000, cfg.Cache.ChunkCacheEntries)
}

func TestLoadRejectsMissingConfigFile(t *testing.T) {
	_, err := Load("/nonexistent/path/does-not-exist.yaml")
	assert.Error(t, err)
}

func TestLoadReadsYAMLConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/rlm.yaml"
	contents := []byte("server:\n  http_port: 7000\nsession:\n  max_sessions: 17\n")
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.HTTPPort)
	assert.Equal(t, 17, cfg.Session.MaxSessions)
}
