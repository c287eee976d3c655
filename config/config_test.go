package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/booking-engine/config"
)

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "./bookings.db", cfg.Storage.Path)
	assert.True(t, cfg.Sweeper.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Sweeper.Interval.Std())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.yaml")
	data := []byte(`
server:
  addr: ":9090"
storage:
  path: "/tmp/test.db"
sweeper:
  enabled: true
  interval: 5m
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/tmp/test.db", cfg.Storage.Path)
	assert.Equal(t, 5*time.Minute, cfg.Sweeper.Interval.Std())
	// Untouched keys keep their defaults.
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Std())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/booking.yaml")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Server.Addr = ""
	assert.Error(t, cfg.Validate())

	cfg = config.DefaultConfig()
	cfg.Sweeper.Interval = 0
	assert.Error(t, cfg.Validate())
}
