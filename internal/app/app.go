// Package app wires capture, detection, the decision engine, dispatch and
// telemetry into the running controller.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/telemetry"
)

// SettingEnabled persists the enable toggle across restarts.
const SettingEnabled = "enabled"

// drainTimeout bounds how long Run waits for queued commands on shutdown.
const drainTimeout = 5 * time.Second

// Config holds the application's collaborators.
type Config struct {
	Settings *config.Config
	Store    *store.Store
	Camera   capture.Camera
	Detector detector.Detector
	Sink     dispatch.Sink
	// Rand overrides the engine's gate randomness.
	Rand func() float64
}

// App is the running controller.
type App struct {
	cfg      *config.Config
	store    *store.Store
	camera   capture.Camera
	detector detector.Detector

	recorder   *telemetry.Recorder
	dispatcher *dispatch.Dispatcher
	engine     *engine.Engine
	preview    *capture.Preview
	log        zerolog.Logger

	enabled atomic.Bool

	mu      sync.RWMutex
	stream  *capture.Stream
	session *store.Session
	buffer  *telemetry.Buffer
}

// New creates an App. Camera, Detector and Store are required; a nil Sink
// makes every command fail as unavailable.
func New(c Config) (*App, error) {
	if c.Store == nil || c.Camera == nil || c.Detector == nil {
		return nil, errors.New("app: store, camera and detector are required")
	}
	if c.Settings == nil {
		c.Settings = config.Default()
	}

	a := &App{
		cfg:      c.Settings,
		store:    c.Store,
		camera:   c.Camera,
		detector: c.Detector,
		recorder: telemetry.NewRecorder(metrics.Recorder{}),
		preview:  capture.NewPreview(),
		log:      logging.For("app"),
	}

	a.dispatcher = dispatch.New(c.Sink, c.Settings.Dispatch, a.onResult)

	var opts []engine.Option
	if c.Rand != nil {
		opts = append(opts, engine.WithRand(c.Rand))
	}
	a.engine = engine.New(c.Settings.Engine, a.dispatcher, a.recorder, opts...)

	a.enabled.Store(c.Store.Settings().Bool(SettingEnabled, true))
	return a, nil
}

// onResult runs on the dispatch worker.
func (a *App) onResult(res dispatch.Result) {
	a.engine.HandleResult(res)
	metrics.ObserveDispatch(res.Command.Action.String(), res.Attempts, res.Latency.Seconds(), a.dispatcher.Degraded())
}

// Run captures and processes frames until ctx is done or the camera runs
// out of frames. The session is closed with the final statistics.
func (a *App) Run(ctx context.Context) error {
	if !a.camera.IsOpen() {
		if err := a.camera.Open(); err != nil {
			return fmt.Errorf("failed to open camera: %w", err)
		}
	}
	defer a.camera.Close()

	session := &store.Session{}
	if err := a.store.Sessions().Create(session); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	stream := capture.NewStream(a.camera, a.cfg.Stream)
	buffer := telemetry.NewBuffer(a.cfg.Telemetry, a.store.Outcomes().Flusher(session.ID))
	a.recorder.AddSink(buffer)

	a.mu.Lock()
	a.stream, a.session, a.buffer = stream, session, buffer
	a.mu.Unlock()

	a.log.Info().Str("session", session.ID).Bool("enabled", a.IsEnabled()).Msg("session started")

	// The pipeline ends when the stream closes; the workers stop after it.
	workers, cancelWorkers := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorkers()

	g, gctx := errgroup.WithContext(workers)
	g.Go(func() error { return a.dispatcher.Run(gctx) })
	g.Go(func() error { return buffer.Run(gctx) })

	streamErr := make(chan error, 1)
	go func() { streamErr <- stream.Run(ctx) }()

	a.process(stream)

	err := <-streamErr

	drain, cancelDrain := context.WithTimeout(workers, drainTimeout)
	if derr := a.dispatcher.Wait(drain); derr != nil {
		a.log.Warn().Int("pending", a.dispatcher.Pending()).Msg("stopping with undelivered commands")
	}
	cancelDrain()
	cancelWorkers()
	if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
		err = errors.Join(err, werr)
	}

	stats := a.engine.Stats()
	if serr := a.store.Sessions().End(session.ID, time.Now(), stats); serr != nil {
		err = errors.Join(err, fmt.Errorf("failed to end session: %w", serr))
	}
	a.log.Info().
		Str("session", session.ID).
		Uint64("frames", stats.Frames).
		Float64("handRate", stats.HandDetectionRate).
		Float64("fps", stats.FPS).
		Msg("session ended")
	return err
}

// SetEnabled turns gesture processing on or off and persists the choice.
func (a *App) SetEnabled(enabled bool) error {
	a.enabled.Store(enabled)
	a.log.Info().Bool("enabled", enabled).Msg("gesture control toggled")
	return a.store.Settings().SetBool(SettingEnabled, enabled)
}

// IsEnabled reports whether frames are being processed.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// Recorder returns the outcome recorder. Add sinks before Run.
func (a *App) Recorder() *telemetry.Recorder { return a.recorder }

// Engine returns the decision engine.
func (a *App) Engine() *engine.Engine { return a.engine }

// Dispatcher returns the command dispatcher.
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.dispatcher }

// Preview returns the live frame preview.
func (a *App) Preview() *capture.Preview { return a.preview }

// Store returns the backing store.
func (a *App) Store() *store.Store { return a.store }

// Session returns the current session, or nil before Run.
func (a *App) Session() *store.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session
}

// Flush writes buffered outcomes now.
func (a *App) Flush(ctx context.Context) error {
	a.mu.RLock()
	buffer := a.buffer
	a.mu.RUnlock()
	if buffer == nil {
		return nil
	}
	return buffer.Flush(ctx)
}

// Snapshot is the controller state reported to clients.
type Snapshot struct {
	Enabled  bool                       `json:"enabled"`
	Degraded bool                       `json:"degraded"`
	Pending  int                        `json:"pending"`
	Session  string                     `json:"session,omitempty"`
	Captured uint64                     `json:"captured"`
	Dropped  uint64                     `json:"dropped"`
	Engine   engine.State               `json:"engine"`
	Counts   map[string]telemetry.Count `json:"counts"`
}

// Snapshot returns the current controller state.
func (a *App) Snapshot() Snapshot {
	s := Snapshot{
		Enabled:  a.IsEnabled(),
		Degraded: a.dispatcher.Degraded(),
		Pending:  a.dispatcher.Pending(),
		Engine:   a.engine.State(),
		Counts:   a.recorder.Counts(),
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.session != nil {
		s.Session = a.session.ID
	}
	if a.stream != nil {
		s.Captured = a.stream.Captured()
		s.Dropped = a.stream.Dropped()
	}
	return s
}
