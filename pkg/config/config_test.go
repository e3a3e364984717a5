package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()
	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, []string{"e5", "e10", "diesel"}, c.Precompute.Fuels)
	assert.Equal(t, 7, c.Engine.SmoothWindow)
	assert.Equal(t, 14, c.Engine.VolWindow)
	assert.Equal(t, 1.3, c.Engine.AsymmetryThreshold)
	assert.Equal(t, 0.0001, c.Engine.VolEpsilon)
	assert.Equal(t, -1, c.Kafka.RequiredAcks)
	assert.Equal(t, 6*time.Hour, c.Cache.TTL)
	require.NoError(t, c.Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: production
server:
  port: 9090
engine:
  max_lag: 5
precompute:
  fuels: [diesel]
`))
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, 5, c.Engine.MaxLag)
	assert.Equal(t, 14, c.Engine.CorrWindow)
	assert.Equal(t, []string{"diesel"}, c.Precompute.Fuels)
}

func TestParseRejectsInvalid(t *testing.T) {
	_, err := Parse([]byte("precompute:\n  fuels: [lpg]\n"))
	require.Error(t, err)

	_, err = Parse([]byte("queue:\n  enabled: true\n"))
	require.Error(t, err)

	_, err = Parse([]byte("engine:\n  ma_window: 30\n"))
	require.Error(t, err)
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("FUELPHASES_SERVER_PORT", "9100")
	t.Setenv("FUELPHASES_PRECOMPUTE_FUELS", "e5,e10")
	t.Setenv("FUELPHASES_CLICKHOUSE_DATABASE", "prices")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, c.Server.Port)
	assert.Equal(t, []string{"e5", "e10"}, c.Precompute.Fuels)
	assert.Equal(t, "prices", c.ClickHouse.Database)
	assert.Equal(t, "localhost", c.ClickHouse.Host)
}

func TestLoadWithEnvMissingFile(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Server.Port)
}
