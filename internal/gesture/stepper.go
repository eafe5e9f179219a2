package gesture

import (
	"fmt"
	"math"
)

// Stepper is a discrete control that moves one step at a time.
type Stepper interface {
	// CanStep reports whether a step in dir (+1 or -1) stays in range.
	CanStep(dir int) bool
	// Step moves one step in dir and returns the new value. It does not
	// move when CanStep(dir) is false.
	Step(dir int) float64
	Value() float64
	Describe(v float64) string
}

// DefaultSpeedTiers are the playback multipliers, slowest first.
var DefaultSpeedTiers = []float64{0.25, 0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0}

// TierLadder steps through an ordered list of speed multipliers.
type TierLadder struct {
	tiers []float64
	index int
}

// NewTierLadder creates a ladder at the given index, clamped to range.
func NewTierLadder(tiers []float64, index int) *TierLadder {
	t := append([]float64(nil), tiers...)
	return &TierLadder{tiers: t, index: max(0, min(len(t)-1, index))}
}

func (l *TierLadder) CanStep(dir int) bool {
	next := l.index + sign(dir)
	return next >= 0 && next < len(l.tiers)
}

func (l *TierLadder) Step(dir int) float64 {
	if l.CanStep(dir) {
		l.index += sign(dir)
	}
	return l.Value()
}

func (l *TierLadder) Value() float64 { return l.tiers[l.index] }

func (l *TierLadder) Describe(v float64) string {
	return fmt.Sprintf("Speed: %gx", v)
}

// Index returns the current tier position.
func (l *TierLadder) Index() int { return l.index }

// VolumeLevel steps a volume in [0, 1]. Levels are rounded to hundredths so
// repeated steps land on exact tenths.
type VolumeLevel struct {
	level float64
	step  float64
}

// NewVolumeLevel creates a level clamped to [0, 1].
func NewVolumeLevel(initial, step float64) *VolumeLevel {
	return &VolumeLevel{level: round2(math.Max(0, math.Min(1, initial))), step: step}
}

func (v *VolumeLevel) CanStep(dir int) bool {
	if dir > 0 {
		return v.level < 1
	}
	return v.level > 0
}

func (v *VolumeLevel) Step(dir int) float64 {
	if v.CanStep(dir) {
		v.level = round2(math.Max(0, math.Min(1, v.level+v.step*float64(sign(dir)))))
	}
	return v.level
}

func (v *VolumeLevel) Value() float64 { return v.level }

func (v *VolumeLevel) Describe(level float64) string {
	return fmt.Sprintf("Volume: %d%%", int(math.Round(level*100)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sign(dir int) int {
	if dir < 0 {
		return -1
	}
	return 1
}
