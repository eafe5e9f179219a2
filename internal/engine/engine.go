// Package engine owns all per-hand and per-axis decision state and turns
// hand observations into playback commands, one frame at a time.
package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/signal"
	"github.com/ayusman/mudra/internal/telemetry"
)

// Side identifies a hand.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Right {
		return "right"
	}
	return "left"
}

// Observation is one hand's pinch distance in frame-width units.
type Observation struct {
	Side     Side
	Distance float64
}

// Frame is everything the engine needs from one camera frame.
type Frame struct {
	Seq       uint64
	Timestamp time.Time
	Hands     []Observation
	// ProcessingTime is the detection time spent on this frame.
	ProcessingTime time.Duration
	// Captured is the number of frames read from the camera so far,
	// including dropped ones.
	Captured uint64
}

// Dispatcher accepts approved commands and reports the player's state.
type Dispatcher interface {
	Submit(cmd dispatch.Command) error
	PlayerState() gesture.PlayerState
}

// SpeedConfig configures the left-hand speed control.
type SpeedConfig struct {
	Axis        gesture.AxisConfig `yaml:"axis"`
	Tiers       []float64          `yaml:"tiers"`
	InitialTier int                `yaml:"initial_tier"`
}

// VolumeConfig configures the right-hand volume control.
type VolumeConfig struct {
	Axis    gesture.AxisConfig `yaml:"axis"`
	Initial float64            `yaml:"initial"`
	Step    float64            `yaml:"step"`
}

// HistoryConfig sets the distance window sizes.
type HistoryConfig struct {
	Decision  int `yaml:"decision"`
	Stability int `yaml:"stability"`
}

// Config holds every decision threshold.
type Config struct {
	Filter    signal.FilterConfig     `yaml:"filter"`
	Next      gesture.NextConfig      `yaml:"next"`
	PausePlay gesture.PausePlayConfig `yaml:"pause_play"`
	Speed     SpeedConfig             `yaml:"speed"`
	Volume    VolumeConfig            `yaml:"volume"`
	History   HistoryConfig           `yaml:"history"`
	Stats     StatsConfig             `yaml:"stats"`
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Filter:    signal.DefaultFilterConfig(),
		Next:      gesture.DefaultNextConfig(),
		PausePlay: gesture.DefaultPausePlayConfig(),
		Speed: SpeedConfig{
			Axis:        gesture.DefaultSpeedAxisConfig(),
			Tiers:       append([]float64(nil), gesture.DefaultSpeedTiers...),
			InitialTier: 3,
		},
		Volume: VolumeConfig{
			Axis:    gesture.DefaultVolumeAxisConfig(),
			Initial: 1.0,
			Step:    0.1,
		},
		History: HistoryConfig{Decision: signal.DecisionWindow, Stability: signal.StabilityWindow},
		Stats:   DefaultStatsConfig(),
	}
}

// Option customizes an Engine.
type Option func(*options)

type options struct {
	rand func() float64
}

// WithRand sets the random source for the speed and volume gates.
func WithRand(r func() float64) Option {
	return func(o *options) { o.rand = r }
}

// Engine is the decision pipeline. Process is serialized; other methods may
// be called from any goroutine.
type Engine struct {
	mu  sync.Mutex
	cfg Config

	dispatcher Dispatcher
	recorder   *telemetry.Recorder
	log        zerolog.Logger

	leftFilter  *signal.Filter
	rightFilter *signal.Filter
	leftHistory *signal.Tracker
	leftValue   float64
	rightValue  float64
	now         time.Time

	next   *gesture.NextDetector
	pause  *gesture.PausePlayDetector
	tiers  *gesture.TierLadder
	level  *gesture.VolumeLevel
	speed  *gesture.Axis
	volume *gesture.Axis

	stats *frameStats
}

// New creates an Engine. Fired decisions go to d; failed attempts go
// straight to rec. Wire HandleResult as the dispatcher's observer so
// dispatch outcomes reach rec too.
func New(cfg Config, d Dispatcher, rec *telemetry.Recorder, opts ...Option) *Engine {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if rec == nil {
		rec = telemetry.NewRecorder()
	}

	tiers := gesture.NewTierLadder(cfg.Speed.Tiers, cfg.Speed.InitialTier)
	level := gesture.NewVolumeLevel(cfg.Volume.Initial, cfg.Volume.Step)

	return &Engine{
		cfg:         cfg,
		dispatcher:  d,
		recorder:    rec,
		log:         logging.For("engine"),
		leftFilter:  signal.NewFilter(cfg.Filter),
		rightFilter: signal.NewFilter(cfg.Filter),
		leftHistory: signal.NewTracker(cfg.History.Decision, cfg.History.Stability),
		next:        gesture.NewNextDetector(cfg.Next),
		pause:       gesture.NewPausePlayDetector(cfg.PausePlay),
		tiers:       tiers,
		level:       level,
		speed:       gesture.NewAxis(cfg.Speed.Axis, gesture.SpeedNames, tiers, o.rand),
		volume:      gesture.NewAxis(cfg.Volume.Axis, gesture.VolumeNames, level, o.rand),
		stats:       newFrameStats(cfg.Stats),
	}
}

// Process runs one frame through the filters and state machines and returns
// the events it produced, in order.
func (e *Engine) Process(f Frame) []gesture.Event {
	start := time.Now()
	now := f.Timestamp
	if now.IsZero() {
		now = start
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats.observe(f, now)
	e.now = now

	left, hasLeft := find(f.Hands, Left)
	right, hasRight := find(f.Hands, Right)

	if hasLeft {
		e.leftValue = e.leftFilter.Update(left.Distance)
		e.leftHistory.Push(e.leftValue)
	}
	if hasRight {
		e.rightValue = e.rightFilter.Update(right.Distance)
	}

	var events []gesture.Event
	if ev, ok := e.next.Update(now, hasLeft && hasRight); ok {
		events = append(events, ev)
	}
	if ev, ok := e.pause.Update(now, hasLeft, e.leftValue, e.dispatcher.PlayerState()); ok {
		events = append(events, ev)
	}
	if hasLeft {
		events = append(events, e.speed.Update(now, e.leftValue)...)
	}
	if hasRight {
		events = append(events, e.volume.Update(now, e.rightValue)...)
	}

	for _, ev := range events {
		e.emit(f, ev, time.Since(start))
	}
	return events
}

func find(hands []Observation, side Side) (Observation, bool) {
	for _, h := range hands {
		if h.Side == side {
			return h, true
		}
	}
	return Observation{}, false
}

func (e *Engine) emit(f Frame, ev gesture.Event, latency time.Duration) {
	if ev.Kind == gesture.Failed {
		e.recorder.Record(telemetry.Outcome{
			Frame:           f.Seq,
			At:              ev.At,
			Gesture:         ev.Gesture,
			Status:          ev.Context,
			DecisionLatency: latency,
			Stats:           e.snapshot(),
		})
		return
	}

	cmd := dispatch.Command{
		Gesture:         ev.Gesture,
		Value:           ev.Value,
		Paused:          ev.Paused,
		Context:         ev.Context,
		Frame:           f.Seq,
		DecidedAt:       ev.At,
		DecisionLatency: latency,
	}
	switch ev.Gesture {
	case gesture.Next:
		cmd.Action = dispatch.ActionNext
	case gesture.Pause, gesture.Play:
		cmd.Action = dispatch.ActionPause
	case gesture.SpeedUp, gesture.SpeedDown:
		cmd.Action = dispatch.ActionSpeed
	case gesture.VolumeUp, gesture.VolumeDown:
		cmd.Action = dispatch.ActionVolume
	}

	e.log.Debug().Uint64("frame", f.Seq).Str("gesture", ev.Gesture).Str("policy", string(ev.Policy)).Msg("decision")

	if err := e.dispatcher.Submit(cmd); err != nil {
		e.recorder.Record(telemetry.Outcome{
			Frame:           f.Seq,
			At:              ev.At,
			Gesture:         ev.Gesture,
			Status:          err.Error(),
			Value:           ev.Value,
			DecisionLatency: latency,
			Stats:           e.snapshot(),
		})
	}
}

func (e *Engine) snapshot() telemetry.FrameStats {
	return e.stats.snapshot(e.leftHistory.StdDev())
}

// HandleResult records a dispatch result. It is the dispatcher's observer.
func (e *Engine) HandleResult(res dispatch.Result) {
	e.mu.Lock()
	stats := e.snapshot()
	e.mu.Unlock()

	e.recorder.Record(telemetry.Outcome{
		Frame:           res.Command.Frame,
		At:              res.Command.DecidedAt,
		Gesture:         res.Command.Gesture,
		Success:         res.Success,
		Status:          res.Status(),
		Value:           res.Command.Value,
		DecisionLatency: res.Command.DecisionLatency,
		DispatchLatency: res.Latency,
		Attempts:        res.Attempts,
		Stats:           stats,
	})
}

// State is a read-only view of the engine. HoldRemaining and NextRemaining
// are the seconds the pause/play and Next holds still need at the last
// processed frame.
type State struct {
	Speed         float64              `json:"speed"`
	SpeedIndex    int                  `json:"speedIndex"`
	Volume        float64              `json:"volume"`
	SpeedBias     float64              `json:"speedBias"`
	VolumeBias    float64              `json:"volumeBias"`
	LeftDistance  float64              `json:"leftDistance"`
	RightDistance float64              `json:"rightDistance"`
	Holding       string               `json:"holding,omitempty"`
	HoldingNext   bool                 `json:"holdingNext"`
	HoldRemaining float64              `json:"holdRemaining"`
	NextRemaining float64              `json:"nextRemaining"`
	Player        gesture.PlayerState  `json:"player"`
	Stats         telemetry.FrameStats `json:"stats"`
}

// State returns the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Speed:         e.tiers.Value(),
		SpeedIndex:    e.tiers.Index(),
		Volume:        e.level.Value(),
		SpeedBias:     e.speed.Bias(),
		VolumeBias:    e.volume.Bias(),
		LeftDistance:  e.leftValue,
		RightDistance: e.rightValue,
		Holding:       e.pause.Holding(),
		HoldingNext:   e.next.Holding(),
		HoldRemaining: e.pause.Remaining(e.now).Seconds(),
		NextRemaining: e.next.Remaining(e.now).Seconds(),
		Player:        e.dispatcher.PlayerState(),
		Stats:         e.snapshot(),
	}
}

// Stats returns the current frame statistics.
func (e *Engine) Stats() telemetry.FrameStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot()
}

// Reset returns every filter, history and state machine to its initial
// state. Speed and volume keep their values.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leftFilter.Reset()
	e.rightFilter.Reset()
	e.leftHistory.Reset()
	e.leftValue, e.rightValue = 0, 0
	e.now = time.Time{}
	e.next.Reset()
	e.pause.Reset()
	e.speed.Reset()
	e.volume.Reset()
	e.stats.reset()
	e.log.Info().Msg("engine reset")
}
