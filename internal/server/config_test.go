package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.NoError(t, config.Validate())
	assert.Equal(t, "0.0.0.0:3001", config.ListenAddress())
	assert.Equal(t, "info", config.Server.LogLevel)
	assert.Zero(t, config.Game.Seed)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.hcl")
	content := `
server {
  address   = "127.0.0.1"
  port      = 4000
  log_level = "debug"
}

game {
  seed = 42
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())
	assert.Equal(t, "127.0.0.1:4000", config.ListenAddress())
	assert.Equal(t, "debug", config.Server.LogLevel)
	assert.Equal(t, int64(42), config.Game.Seed)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	config.Server.Port = 0
	assert.Error(t, config.Validate())

	config = DefaultConfig()
	config.Server.LogLevel = "loud"
	assert.Error(t, config.Validate())
}
