package gesture

import "time"

// NextConfig configures the both-hands Next gesture.
type NextConfig struct {
	Hold        time.Duration `yaml:"hold"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// DefaultNextConfig returns a 1s hold and a 2.5s spacing between firings.
func DefaultNextConfig() NextConfig {
	return NextConfig{Hold: time.Second, MinInterval: 2500 * time.Millisecond}
}

// NextDetector fires Next once both hands have been visible for the hold
// duration.
type NextDetector struct {
	cfg   NextConfig
	hold  HoldTimer
	clock RateClock
}

// NewNextDetector creates an idle detector.
func NewNextDetector(cfg NextConfig) *NextDetector {
	return &NextDetector{cfg: cfg, clock: RateClock{Interval: cfg.MinInterval}}
}

// Update advances the state machine for one frame.
func (d *NextDetector) Update(now time.Time, bothHands bool) (Event, bool) {
	if !bothHands {
		if d.hold.Active() {
			d.hold.Clear()
			return failed(Next, ReasonNoBothHands, now), true
		}
		return Event{}, false
	}

	if !d.hold.Active() {
		d.hold.Start(now)
		return Event{}, false
	}

	if d.hold.Elapsed(now) >= d.cfg.Hold && d.clock.Ready(now) {
		d.clock.Stamp(now)
		d.hold.Clear()
		return fired(Next, "Next video", now), true
	}
	return Event{}, false
}

// Holding reports whether a hold is in progress.
func (d *NextDetector) Holding() bool { return d.hold.Active() }

// Remaining returns how long the current hold still needs, or 0.
func (d *NextDetector) Remaining(now time.Time) time.Duration {
	if !d.hold.Active() {
		return 0
	}
	return max(0, d.cfg.Hold-d.hold.Elapsed(now))
}

// Reset returns the detector to Idle and forgets the last firing.
func (d *NextDetector) Reset() {
	d.hold.Clear()
	d.clock.Reset()
}
