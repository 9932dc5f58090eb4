package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "tcp", cfg.Engine.Network)
	assert.Equal(t, 10000, cfg.Search.DefaultMatches)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
engine:
  network: unix
  address: /tmp/zoekt.sock
  dial_timeout: 2s
server:
  addr: localhost:8080
search:
  default_matches: 500
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "unix", cfg.Engine.Network)
	assert.Equal(t, "/tmp/zoekt.sock", cfg.Engine.Address)
	assert.Equal(t, 2*time.Second, cfg.Engine.DialTimeout)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, 500, cfg.Search.DefaultMatches)
	// Unset fields keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  address: file:1234\n"), 0o644))

	t.Setenv("SEARCHD_ENGINE_ADDRESS", "env:5678")
	t.Setenv("SEARCHD_PERMISSION_SYNC_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env:5678", cfg.Engine.Address)
	assert.True(t, cfg.Store.PermissionSyncEnabled)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad network", func(c *Config) { c.Engine.Network = "udp" }},
		{"empty address", func(c *Config) { c.Engine.Address = "" }},
		{"zero matches", func(c *Config) { c.Search.DefaultMatches = 0 }},
		{"negative context lines", func(c *Config) { c.Search.DefaultContextLines = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
