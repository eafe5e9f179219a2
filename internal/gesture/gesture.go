// Package gesture turns smoothed pinch distances and hand presence into
// discrete playback decisions. Each detector is a small state machine driven
// by the frame clock; none of them talk to the media player directly.
package gesture

import (
	"fmt"
	"time"
)

// Gesture names as they appear in telemetry.
const (
	Next       = "Next"
	Pause      = "Pause"
	Play       = "Play"
	SpeedUp    = "Speed Up"
	SpeedDown  = "Speed Down"
	VolumeUp   = "Volume Up"
	VolumeDown = "Volume Down"
)

// Failure reasons.
const (
	ReasonNoBothHands     = "no both hands detected"
	ReasonNotInThreshold  = "distance not in threshold"
	ReasonNoLeftHand      = "no left hand detected"
	ReasonHoldInterrupted = "hold interrupted"
	ReasonPlayerUnknown   = "player state unavailable"
)

// Kind distinguishes fired decisions from failed attempts.
type Kind int

const (
	// Fired means the state machine decided a command should be sent.
	Fired Kind = iota
	// Failed means an attempt was started or evaluated but did not complete.
	Failed
)

func (k Kind) String() string {
	switch k {
	case Fired:
		return "fired"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Policy names the path that produced an axis step.
type Policy string

const (
	PolicyGate Policy = "gate"
	PolicyBias Policy = "bias"
)

// Event is one decision or failed attempt produced by a detector.
type Event struct {
	Kind    Kind
	Gesture string
	// Context is a human readable label, e.g. "Speed: 1.25x" or a failure reason.
	Context string
	// Value is the new speed multiplier or volume level for axis steps.
	Value float64
	// Paused is the requested state for Pause and Play.
	Paused bool
	Policy Policy
	At     time.Time
}

func fired(gesture, context string, at time.Time) Event {
	return Event{Kind: Fired, Gesture: gesture, Context: context, At: at}
}

func failed(gesture, reason string, at time.Time) Event {
	return Event{Kind: Failed, Gesture: gesture, Context: reason, At: at}
}

// PlayerState is the last known paused state of the media player.
type PlayerState struct {
	Paused bool
	// Known is false until the player has reported its state.
	Known bool
}

// HoldTimer tracks how long a condition has held continuously.
type HoldTimer struct {
	start time.Time
	on    bool
}

// Start begins timing at now if not already running.
func (h *HoldTimer) Start(now time.Time) {
	if !h.on {
		h.start = now
		h.on = true
	}
}

// Active reports whether the timer is running.
func (h *HoldTimer) Active() bool { return h.on }

// Elapsed returns the time held so far, or 0 when idle.
func (h *HoldTimer) Elapsed(now time.Time) time.Duration {
	if !h.on {
		return 0
	}
	return now.Sub(h.start)
}

// Clear stops the timer.
func (h *HoldTimer) Clear() {
	h.on = false
	h.start = time.Time{}
}

// RateClock enforces a minimum interval between firings of one command kind.
type RateClock struct {
	Interval time.Duration
	last     time.Time
}

// Ready reports whether at least Interval has elapsed since the last stamp.
// A clock that was never stamped is always ready.
func (c *RateClock) Ready(now time.Time) bool {
	return c.last.IsZero() || now.Sub(c.last) >= c.Interval
}

// Stamp records a firing at now.
func (c *RateClock) Stamp(now time.Time) { c.last = now }

// Reset forgets the last stamp.
func (c *RateClock) Reset() { c.last = time.Time{} }
