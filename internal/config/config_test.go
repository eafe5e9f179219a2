package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mudra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.09, cfg.Engine.PausePlay.CloseThreshold)
	assert.Equal(t, 0.15, cfg.Engine.PausePlay.OpenThreshold)
	assert.Equal(t, 700*time.Millisecond, cfg.Engine.PausePlay.Hold)
	assert.Equal(t, time.Second, cfg.Engine.Next.Hold)
	assert.Equal(t, 3, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.FlushInterval)
	assert.Equal(t, 100, cfg.Telemetry.MaxEntries)
	assert.Equal(t, 3, cfg.Stream.Buffer)
	assert.Equal(t, filepath.Join(cfg.DataDir, "mudra.db"), cfg.DBPath())
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
engine:
  pause_play:
    hold: 1.5s
  speed:
    tiers: [0.5, 1.0, 1.5]
    initial_tier: 1
telemetry:
  max_entries: 10
dry_run: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 1500*time.Millisecond, cfg.Engine.PausePlay.Hold)
	assert.Equal(t, []float64{0.5, 1.0, 1.5}, cfg.Engine.Speed.Tiers)
	assert.Equal(t, 1, cfg.Engine.Speed.InitialTier)
	assert.Equal(t, 10, cfg.Telemetry.MaxEntries)
	assert.True(t, cfg.DryRun)

	// Untouched fields keep their defaults.
	assert.Equal(t, 0.09, cfg.Engine.PausePlay.CloseThreshold)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.FlushInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MUDRA_ADDR", ":7000")
	t.Setenv("MUDRA_LOG_LEVEL", "debug")
	t.Setenv("MUDRA_DATA_DIR", "/tmp/mudra-test")
	t.Setenv("MUDRA_CAMERA", "2")
	t.Setenv("MUDRA_PLUGIN", "media-control")
	t.Setenv("MUDRA_DRY_RUN", "true")

	path := writeConfig(t, "server:\n  addr: \":9090\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, "environment wins over the file")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/mudra-test", cfg.DataDir)
	assert.Equal(t, 2, cfg.Camera.Device)
	assert.Equal(t, "media-control", cfg.Plugins.Name)
	assert.True(t, cfg.DryRun)
}

func TestLoad_InvalidEnvIgnored(t *testing.T) {
	t.Setenv("MUDRA_CAMERA", "front")
	t.Setenv("MUDRA_DRY_RUN", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Camera.Device)
	assert.False(t, cfg.DryRun)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [unclosed"))
		require.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		_, err := Load(writeConfig(t, "engine:\n  next:\n    hold: soon\n"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "inverted pause thresholds",
			mutate: func(c *Config) { c.Engine.PausePlay.CloseThreshold = 0.2 },
			want:   "close_threshold",
		},
		{
			name:   "initial tier out of range",
			mutate: func(c *Config) { c.Engine.Speed.InitialTier = 8 },
			want:   "initial_tier",
		},
		{
			name:   "tier above max speed",
			mutate: func(c *Config) { c.Engine.Speed.Tiers = []float64{1, 3} },
			want:   "engine.speed.tiers",
		},
		{
			name:   "volume out of range",
			mutate: func(c *Config) { c.Engine.Volume.Initial = 1.5 },
			want:   "engine.volume.initial",
		},
		{
			name:   "no attempts",
			mutate: func(c *Config) { c.Dispatch.MaxAttempts = 0 },
			want:   "dispatch.max_attempts",
		},
		{
			name:   "empty addr",
			mutate: func(c *Config) { c.Server.Addr = "" },
			want:   "server.addr",
		},
		{
			name:   "zero stream buffer",
			mutate: func(c *Config) { c.Stream.Buffer = 0 },
			want:   "stream.buffer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
