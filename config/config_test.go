package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  port: \":9090\"\nsplit:\n  layers: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, 4, cfg.Split.Layers)
	assert.Equal(t, 400, cfg.Split.CirclesPerLayer)
	assert.Equal(t, 60, cfg.Split.RadiusDivisor)
	assert.True(t, cfg.Merge.UseManifest)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
}

func TestNewFallsBackToDefault(t *testing.T) {
	cfg := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 10, cfg.Split.Layers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
