package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "absent.yaml"), map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestFileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
max_turns: 80
workers: 8
split: element
database:
  dsn: postgres://arena@localhost/arena
telemetry:
  enabled: true
`)

	cfg, err := load(path, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.MaxTurns)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "element", cfg.Split)
	assert.Equal(t, "postgres://arena@localhost/arena", cfg.Database.DSN)
	assert.True(t, cfg.Database.Migrate)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.InDelta(t, 0.5, cfg.DefenseCoeff, 1e-9)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, "max_turns: 80\nlog_level: warn\n")

	cfg, err := load(path, map[string]string{
		"ARENA_MAX_TURNS":          "30",
		"ARENA_COUNTER_PENALTY":    "0.6",
		"ARENA_DATABASE_DSN":       "postgres://env",
		"ARENA_TELEMETRY_ENDPOINT": "http://collector:4318",
	})
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.MaxTurns)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.InDelta(t, 0.6, cfg.Calculator().CounterPenalty, 1e-9)
	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, "http://collector:4318", cfg.Telemetry.Endpoint)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"max turns", func(c *Config) { c.MaxTurns = 0 }},
		{"workers", func(c *Config) { c.Workers = 0 }},
		{"negative coefficient", func(c *Config) { c.DefenseCoeff = -1 }},
		{"split", func(c *Config) { c.Split = "random" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestMalformedFile(t *testing.T) {
	path := writeFile(t, "max_turns: [")
	_, err := load(path, map[string]string{})
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "DEBUG"
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
