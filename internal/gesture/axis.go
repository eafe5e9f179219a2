package gesture

import (
	"math"
	"time"
)

// ThresholdConfig sets the minimum |delta| that counts as movement. When
// Dynamic is false only Fixed is used; otherwise the threshold is
// clamp(Base + Gain*(1 - |delta|*Scale), Min, Max).
type ThresholdConfig struct {
	Dynamic bool    `yaml:"dynamic"`
	Fixed   float64 `yaml:"fixed"`
	Base    float64 `yaml:"base"`
	Gain    float64 `yaml:"gain"`
	Scale   float64 `yaml:"scale"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
}

// At returns the threshold for a given delta.
func (c ThresholdConfig) At(delta float64) float64 {
	if !c.Dynamic {
		return c.Fixed
	}
	t := c.Base + c.Gain*(1-math.Abs(delta)*c.Scale)
	return math.Max(c.Min, math.Min(c.Max, t))
}

// AxisConfig configures a continuous delta-driven control.
type AxisConfig struct {
	MinInterval time.Duration   `yaml:"min_interval"`
	Threshold   ThresholdConfig `yaml:"threshold"`
	// Evaluation is suppressed while the distance is within ExcludeRadius
	// of ExcludeCenter. A zero radius disables the exclusion band.
	ExcludeCenter float64    `yaml:"exclude_center"`
	ExcludeRadius float64    `yaml:"exclude_radius"`
	Bias          BiasConfig `yaml:"bias"`
	Gate          GateConfig `yaml:"gate"`
}

// DefaultSpeedAxisConfig returns the left-hand speed tuning. The exclusion
// band keeps pause pinches from reading as slow-downs.
func DefaultSpeedAxisConfig() AxisConfig {
	return AxisConfig{
		MinInterval: 15 * time.Millisecond,
		Threshold: ThresholdConfig{
			Dynamic: true,
			Base:    0.0025,
			Gain:    0.002,
			Scale:   12,
			Min:     0.002,
			Max:     0.005,
		},
		ExcludeCenter: 0.09,
		ExcludeRadius: 0.02,
		Bias:          DefaultBiasConfig(),
		Gate:          DefaultGateConfig(),
	}
}

// DefaultVolumeAxisConfig returns the right-hand volume tuning.
func DefaultVolumeAxisConfig() AxisConfig {
	return AxisConfig{
		MinInterval: 15 * time.Millisecond,
		Threshold:   ThresholdConfig{Fixed: 0.005},
		Bias:        DefaultBiasConfig(),
		Gate:        DefaultGateConfig(),
	}
}

// AxisNames labels the events of one axis.
type AxisNames struct {
	Up, Down string
	// Idle is the failure reason when the gate declines and no step happens.
	Idle string
}

// SpeedNames and VolumeNames label the two built-in axes.
var (
	SpeedNames  = AxisNames{Up: SpeedUp, Down: SpeedDown, Idle: "no speed change"}
	VolumeNames = AxisNames{Up: VolumeUp, Down: VolumeDown, Idle: "no volume change"}
)

// Axis turns frame-to-frame distance deltas into single steps of a Stepper.
//
// Each evaluation first tries the probability gate; a passing draw with room
// to move steps and ends the evaluation. Otherwise a failed attempt is
// reported and the bias accumulator gets the directional evidence, which may
// still step. At most one step happens per evaluation.
type Axis struct {
	cfg     AxisConfig
	names   AxisNames
	stepper Stepper
	bias    *BiasAccumulator
	gate    *Gate

	prev     float64
	havePrev bool
	lastEval time.Time
}

// NewAxis creates an axis controller. A nil rand uses math/rand/v2.
func NewAxis(cfg AxisConfig, names AxisNames, stepper Stepper, rand func() float64) *Axis {
	return &Axis{
		cfg:     cfg,
		names:   names,
		stepper: stepper,
		bias:    NewBiasAccumulator(cfg.Bias),
		gate:    NewGate(cfg.Gate, rand),
	}
}

// Update feeds the smoothed distance for one frame and returns zero, one or
// two events (a gate failure may be followed by a bias step).
func (a *Axis) Update(now time.Time, smoothed float64) []Event {
	if !a.havePrev {
		a.prev = smoothed
		a.havePrev = true
		return nil
	}
	delta := smoothed - a.prev
	a.prev = smoothed

	if !a.lastEval.IsZero() && now.Sub(a.lastEval) <= a.cfg.MinInterval {
		return nil
	}
	if math.Abs(delta) <= a.cfg.Threshold.At(delta) {
		return nil
	}
	if a.cfg.ExcludeRadius > 0 && math.Abs(smoothed-a.cfg.ExcludeCenter) <= a.cfg.ExcludeRadius {
		return nil
	}
	a.lastEval = now

	dir, name := 1, a.names.Up
	if delta < 0 {
		dir, name = -1, a.names.Down
	}

	if a.gate.Pass(delta) && a.stepper.CanStep(dir) {
		return []Event{a.step(now, dir, name, PolicyGate)}
	}

	events := []Event{failed(name, a.names.Idle, now)}
	if a.bias.Observe(dir, a.stepper.CanStep(dir)) {
		events = append(events, a.step(now, dir, name, PolicyBias))
	}
	return events
}

func (a *Axis) step(now time.Time, dir int, name string, policy Policy) Event {
	v := a.stepper.Step(dir)
	a.bias.Reset()
	ev := fired(name, a.stepper.Describe(v), now)
	ev.Value = v
	ev.Policy = policy
	return ev
}

// Value returns the stepper's current value.
func (a *Axis) Value() float64 { return a.stepper.Value() }

// Bias returns the accumulator value.
func (a *Axis) Bias() float64 { return a.bias.Value() }

// Previous returns the last smoothed distance seen, if any.
func (a *Axis) Previous() (float64, bool) { return a.prev, a.havePrev }

// Reset clears timing, delta and bias state. The stepper keeps its value.
func (a *Axis) Reset() {
	a.havePrev = false
	a.lastEval = time.Time{}
	a.bias.Reset()
}
