// Package player provides media player sinks for the dispatcher.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/plugin"
)

// PluginSink drives a media player through a plugin executable.
type PluginSink struct {
	plugin   *plugin.Plugin
	executor *plugin.Executor
}

// NewPluginSink wraps p. It fails when p does not support every media action.
func NewPluginSink(p *plugin.Plugin, executor *plugin.Executor) (*PluginSink, error) {
	if !p.Manifest.Supports(plugin.MediaActions...) {
		return nil, fmt.Errorf("plugin %q does not support %v", p.Manifest.Name, plugin.MediaActions)
	}
	return &PluginSink{plugin: p, executor: executor}, nil
}

// Open discovers plugins in m and returns a sink for the named one, or for
// the first plugin supporting every media action when name is empty.
func Open(m *plugin.Manager, executor *plugin.Executor, name string) (*PluginSink, error) {
	if err := m.Discover(); err != nil {
		return nil, fmt.Errorf("failed to discover plugins: %w", err)
	}

	var (
		p   *plugin.Plugin
		err error
	)
	if name != "" {
		p, err = m.Get(name)
	} else {
		p, err = m.Supporting(plugin.MediaActions...)
	}
	if err != nil {
		return nil, err
	}
	return NewPluginSink(p, executor)
}

// Name returns the plugin name.
func (s *PluginSink) Name() string { return s.plugin.Manifest.Name }

func (s *PluginSink) SetSpeed(ctx context.Context, speed float64) error {
	return s.call(ctx, plugin.ActionSetSpeed, plugin.SpeedParams{Speed: speed}, nil)
}

func (s *PluginSink) SetVolume(ctx context.Context, volume float64) error {
	return s.call(ctx, plugin.ActionSetVolume, plugin.VolumeParams{Volume: volume}, nil)
}

func (s *PluginSink) SetPaused(ctx context.Context, paused bool) error {
	return s.call(ctx, plugin.ActionSetPaused, plugin.PausedParams{Paused: paused}, nil)
}

func (s *PluginSink) Next(ctx context.Context) error {
	return s.call(ctx, plugin.ActionNext, nil, nil)
}

func (s *PluginSink) IsPaused(ctx context.Context) (bool, error) {
	st, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	return st.Paused, nil
}

// Status returns the player's reported state.
func (s *PluginSink) Status(ctx context.Context) (plugin.Status, error) {
	var st plugin.Status
	err := s.call(ctx, plugin.ActionStatus, nil, &st)
	return st, err
}

// call maps a failed plugin action to dispatch.ErrSinkUnavailable so the
// dispatcher treats it as a lost connection.
func (s *PluginSink) call(ctx context.Context, action string, params, out any) error {
	err := s.executor.Call(ctx, s.plugin, action, params, out)
	if err == nil {
		return nil
	}
	if errors.Is(err, plugin.ErrActionFailed) {
		return fmt.Errorf("%w: %w", dispatch.ErrSinkUnavailable, err)
	}
	return err
}

// DryRun is a sink that logs every command and remembers the resulting
// state. It never fails.
type DryRun struct {
	mu     sync.Mutex
	speed  float64
	volume float64
	paused bool
	tracks int
	log    zerolog.Logger
}

// NewDryRun creates a DryRun sink at normal speed and full volume, playing.
func NewDryRun() *DryRun {
	return &DryRun{speed: 1, volume: 1, log: logging.For("player")}
}

func (d *DryRun) SetSpeed(_ context.Context, speed float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = speed
	d.log.Info().Float64("speed", speed).Msg("dry run: set speed")
	return nil
}

func (d *DryRun) SetVolume(_ context.Context, volume float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = volume
	d.log.Info().Float64("volume", volume).Msg("dry run: set volume")
	return nil
}

func (d *DryRun) SetPaused(_ context.Context, paused bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = paused
	d.log.Info().Bool("paused", paused).Msg("dry run: set paused")
	return nil
}

func (d *DryRun) Next(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tracks++
	d.paused = false
	d.log.Info().Int("skipped", d.tracks).Msg("dry run: next")
	return nil
}

func (d *DryRun) IsPaused(_ context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused, nil
}

// Status returns the simulated player state.
func (d *DryRun) Status() plugin.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return plugin.Status{Player: "dry-run", Paused: d.paused, Speed: d.speed, Volume: d.volume}
}

// Skipped returns how many times Next was called.
func (d *DryRun) Skipped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tracks
}

var (
	_ dispatch.Sink = (*PluginSink)(nil)
	_ dispatch.Sink = (*DryRun)(nil)
)
