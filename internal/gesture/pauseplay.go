package gesture

import "time"

// PausePlayConfig configures the left-hand pinch hold gestures.
type PausePlayConfig struct {
	// Below CloseThreshold a hold requests Pause; above OpenThreshold it
	// requests Play. Values in between form a dead zone.
	CloseThreshold float64       `yaml:"close_threshold"`
	OpenThreshold  float64       `yaml:"open_threshold"`
	Hold           time.Duration `yaml:"hold"`
	MinInterval    time.Duration `yaml:"min_interval"`
}

// DefaultPausePlayConfig returns the tuned thresholds.
func DefaultPausePlayConfig() PausePlayConfig {
	return PausePlayConfig{
		CloseThreshold: 0.09,
		OpenThreshold:  0.15,
		Hold:           700 * time.Millisecond,
		MinInterval:    2500 * time.Millisecond,
	}
}

type band int

const (
	bandNone band = iota
	bandClose
	bandOpen
)

func (b band) gesture() string {
	if b == bandClose {
		return Pause
	}
	return Play
}

// PausePlayDetector tracks a single hold that is either a Pause (pinched)
// or a Play (spread) request.
type PausePlayDetector struct {
	cfg    PausePlayConfig
	active band
	hold   HoldTimer
	clock  RateClock
}

// NewPausePlayDetector creates an idle detector.
func NewPausePlayDetector(cfg PausePlayConfig) *PausePlayDetector {
	return &PausePlayDetector{cfg: cfg, clock: RateClock{Interval: cfg.MinInterval}}
}

func (d *PausePlayDetector) classify(distance float64) band {
	switch {
	case distance < d.cfg.CloseThreshold:
		return bandClose
	case distance > d.cfg.OpenThreshold:
		return bandOpen
	default:
		return bandNone
	}
}

// Update advances the state machine with the left hand's smoothed distance.
// present is false when no left hand was observed this frame. A completed
// hold fires when the player is known to be in the opposite state, keeps
// running while the player is already there, and fails when the player
// state is unknown.
func (d *PausePlayDetector) Update(now time.Time, present bool, distance float64, player PlayerState) (Event, bool) {
	if !present {
		return d.abort(now, ReasonNoLeftHand)
	}

	b := d.classify(distance)
	if b == bandNone {
		return d.abort(now, ReasonNotInThreshold)
	}

	if d.active != b {
		prev := d.active
		d.active = b
		d.hold.Clear()
		d.hold.Start(now)
		if prev != bandNone {
			return failed(prev.gesture(), ReasonHoldInterrupted, now), true
		}
		return Event{}, false
	}

	if d.hold.Elapsed(now) < d.cfg.Hold || !d.clock.Ready(now) {
		return Event{}, false
	}
	if !player.Known {
		d.clock.Stamp(now)
		g := b.gesture()
		d.reset()
		return failed(g, ReasonPlayerUnknown, now), true
	}

	wantPaused := b == bandClose
	if player.Paused == wantPaused {
		return Event{}, false
	}

	d.clock.Stamp(now)
	d.reset()
	ev := fired(b.gesture(), b.gesture()+" video", now)
	ev.Paused = wantPaused
	return ev, true
}

func (d *PausePlayDetector) abort(now time.Time, reason string) (Event, bool) {
	if d.active == bandNone {
		return Event{}, false
	}
	g := d.active.gesture()
	d.reset()
	return failed(g, reason, now), true
}

func (d *PausePlayDetector) reset() {
	d.active = bandNone
	d.hold.Clear()
}

// Holding returns the gesture of the hold in progress, or "".
func (d *PausePlayDetector) Holding() string {
	if d.active == bandNone {
		return ""
	}
	return d.active.gesture()
}

// Remaining returns how long the current hold still needs, or 0.
func (d *PausePlayDetector) Remaining(now time.Time) time.Duration {
	if d.active == bandNone {
		return 0
	}
	return max(0, d.cfg.Hold-d.hold.Elapsed(now))
}

// Reset returns the detector to Idle and forgets the last firing.
func (d *PausePlayDetector) Reset() {
	d.reset()
	d.clock.Reset()
}
