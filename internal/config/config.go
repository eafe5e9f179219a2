// Package config loads the application configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/telemetry"
)

// Config is the full application configuration.
type Config struct {
	Log       logging.Config         `yaml:"log"`
	Engine    engine.Config          `yaml:"engine"`
	Dispatch  dispatch.Config        `yaml:"dispatch"`
	Telemetry telemetry.BufferConfig `yaml:"telemetry"`
	Camera    capture.Config         `yaml:"camera"`
	Stream    capture.StreamConfig   `yaml:"stream"`
	Detector  detector.Config        `yaml:"detector"`
	Server    ServerConfig           `yaml:"server"`
	Plugins   PluginConfig           `yaml:"plugins"`

	// DataDir holds the database.
	DataDir string `yaml:"data_dir"`
	// DryRun logs commands instead of driving a player.
	DryRun bool `yaml:"dry_run"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	// StreamFPS caps the MJPEG preview rate.
	StreamFPS float64 `yaml:"stream_fps"`
}

// PluginConfig selects the player plugin.
type PluginConfig struct {
	Dir string `yaml:"dir"`
	// Name picks a plugin by manifest name. Empty picks the first plugin
	// supporting every media action.
	Name    string        `yaml:"name"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	dataDir := ".mudra"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".mudra")
	}
	return &Config{
		Log:       logging.DefaultConfig(),
		Engine:    engine.DefaultConfig(),
		Dispatch:  dispatch.DefaultConfig(),
		Telemetry: telemetry.DefaultBufferConfig(),
		Camera:    capture.DefaultConfig(),
		Stream:    capture.DefaultStreamConfig(),
		Detector:  detector.DefaultConfig(),
		Server: ServerConfig{
			Addr:      "127.0.0.1:8080",
			StreamFPS: 15,
		},
		Plugins: PluginConfig{
			Dir:     filepath.Join(dataDir, "plugins"),
			Timeout: 5 * time.Second,
		},
		DataDir: dataDir,
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Log.Level = getEnv("MUDRA_LOG_LEVEL", c.Log.Level)
	c.Server.Addr = getEnv("MUDRA_ADDR", c.Server.Addr)
	c.DataDir = getEnv("MUDRA_DATA_DIR", c.DataDir)
	c.Camera.Device = getEnvInt("MUDRA_CAMERA", c.Camera.Device)
	c.Plugins.Name = getEnv("MUDRA_PLUGIN", c.Plugins.Name)
	c.DryRun = getEnvBool("MUDRA_DRY_RUN", c.DryRun)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	pp := c.Engine.PausePlay
	check(pp.CloseThreshold > 0 && pp.CloseThreshold < pp.OpenThreshold,
		"engine.pause_play: close_threshold %v must be positive and below open_threshold %v", pp.CloseThreshold, pp.OpenThreshold)
	check(pp.Hold > 0, "engine.pause_play.hold must be positive")
	check(c.Engine.Next.Hold > 0, "engine.next.hold must be positive")

	sp := c.Engine.Speed
	check(len(sp.Tiers) > 0, "engine.speed.tiers must not be empty")
	check(sp.InitialTier >= 0 && sp.InitialTier < len(sp.Tiers),
		"engine.speed.initial_tier %d out of range", sp.InitialTier)
	for _, tier := range sp.Tiers {
		check(tier >= dispatch.MinSpeed && tier <= dispatch.MaxSpeed,
			"engine.speed.tiers: %v outside [%v, %v]", tier, dispatch.MinSpeed, dispatch.MaxSpeed)
	}

	vol := c.Engine.Volume
	check(vol.Initial >= dispatch.MinVolume && vol.Initial <= dispatch.MaxVolume,
		"engine.volume.initial %v outside [0, 1]", vol.Initial)
	check(vol.Step > 0 && vol.Step <= 1, "engine.volume.step %v must be in (0, 1]", vol.Step)

	check(c.Engine.History.Decision > 0 && c.Engine.History.Stability > 0, "engine.history windows must be positive")
	check(c.Dispatch.MaxAttempts > 0, "dispatch.max_attempts must be positive")
	check(c.Telemetry.FlushInterval > 0, "telemetry.flush_interval must be positive")
	check(c.Telemetry.MaxEntries > 0, "telemetry.max_entries must be positive")
	check(c.Camera.Width > 0 && c.Camera.Height > 0, "camera size %dx%d is invalid", c.Camera.Width, c.Camera.Height)
	check(c.Stream.Buffer > 0, "stream.buffer must be positive")
	check(c.Server.Addr != "", "server.addr is required")
	check(c.Plugins.Timeout > 0, "plugins.timeout must be positive")
	check(c.DataDir != "", "data_dir is required")

	return errors.Join(errs...)
}

// DBPath is the SQLite database location.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "mudra.db")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
