package gesture

import (
	"math"
	"math/rand"
)

// BiasConfig configures a trigger-and-reset accumulator.
type BiasConfig struct {
	Step    float64 `yaml:"step"`
	Limit   float64 `yaml:"limit"`
	Trigger float64 `yaml:"trigger"`
}

// DefaultBiasConfig returns ±1.8 nudges saturating at ±4 and triggering at ±1.2.
func DefaultBiasConfig() BiasConfig {
	return BiasConfig{Step: 1.8, Limit: 4.0, Trigger: 1.2}
}

// BiasAccumulator requires consistent directional evidence before a step.
// It resets to exactly zero on every step of its axis.
type BiasAccumulator struct {
	cfg   BiasConfig
	value float64
}

// NewBiasAccumulator creates an accumulator at zero.
func NewBiasAccumulator(cfg BiasConfig) *BiasAccumulator {
	return &BiasAccumulator{cfg: cfg}
}

// Observe nudges the accumulator toward dir (+1 or -1) and reports whether a
// step should fire. A step never fires when canStep is false, but the
// evidence is still accumulated.
func (b *BiasAccumulator) Observe(dir int, canStep bool) bool {
	b.value += b.cfg.Step * float64(dir)
	b.value = math.Max(-b.cfg.Limit, math.Min(b.cfg.Limit, b.value))
	if !canStep {
		return false
	}
	if (dir > 0 && b.value >= b.cfg.Trigger) || (dir < 0 && b.value <= -b.cfg.Trigger) {
		b.value = 0
		return true
	}
	return false
}

// Value returns the current accumulator.
func (b *BiasAccumulator) Value() float64 { return b.value }

// Reset sets the accumulator to zero.
func (b *BiasAccumulator) Reset() { b.value = 0 }

// GateConfig shapes the probability curve p = min(1, (|delta|*Scale)^Exponent / Divisor).
type GateConfig struct {
	Scale    float64 `yaml:"scale"`
	Exponent float64 `yaml:"exponent"`
	Divisor  float64 `yaml:"divisor"`
}

// DefaultGateConfig returns the tuned curve.
func DefaultGateConfig() GateConfig {
	return GateConfig{Scale: 100, Exponent: 1.4, Divisor: 35}
}

// Gate lets large deltas step immediately with a probability that grows with
// their magnitude.
type Gate struct {
	cfg  GateConfig
	rand func() float64
}

// NewGate creates a gate. A nil source uses math/rand/v2.
func NewGate(cfg GateConfig, source func() float64) *Gate {
	if source == nil {
		source = rand.Float64
	}
	return &Gate{cfg: cfg, rand: source}
}

// Probability returns the chance that delta passes the gate.
func (g *Gate) Probability(delta float64) float64 {
	if g.cfg.Divisor <= 0 {
		return 1
	}
	return math.Min(1, math.Pow(math.Abs(delta)*g.cfg.Scale, g.cfg.Exponent)/g.cfg.Divisor)
}

// Pass draws once and reports whether delta passes.
func (g *Gate) Pass(delta float64) bool {
	return g.rand() < g.Probability(delta)
}
