// Package signal conditions raw per-frame pinch distances: an adaptive
// exponential smoother with a bounded predictive term, and rolling histories
// used for stability statistics.
package signal

import "math"

// RecentSize is the number of filtered values kept by a Filter.
const RecentSize = 3

// FilterConfig holds the smoothing parameters.
type FilterConfig struct {
	BaseAlpha      float64 `yaml:"base_alpha"`
	Responsiveness float64 `yaml:"responsiveness"`
	MinAlpha       float64 `yaml:"min_alpha"`
	MaxAlpha       float64 `yaml:"max_alpha"`

	// PredictionFactor and AccelerationFactor weight the velocity and
	// acceleration terms of the predicted value.
	PredictionFactor   float64 `yaml:"prediction_factor"`
	AccelerationFactor float64 `yaml:"acceleration_factor"`
	// MaxPrediction bounds |predicted - filtered|.
	MaxPrediction float64 `yaml:"max_prediction"`
	// PredictiveThreshold is the responsiveness above which Update returns
	// the predicted value instead of the filtered one.
	PredictiveThreshold float64 `yaml:"predictive_threshold"`
}

// DefaultFilterConfig returns the tuned defaults. With Responsiveness 0.7 the
// predictive branch is inactive.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		BaseAlpha:           0.3,
		Responsiveness:      0.7,
		MinAlpha:            0.1,
		MaxAlpha:            0.6,
		PredictionFactor:    0.4,
		AccelerationFactor:  0.15,
		MaxPrediction:       0.12,
		PredictiveThreshold: 0.8,
	}
}

// Predictive reports whether Update returns predicted values.
func (c FilterConfig) Predictive() bool {
	return c.Responsiveness > c.PredictiveThreshold
}

// Filter is an adaptive smoothing filter for one hand. It is not safe for
// concurrent use.
type Filter struct {
	cfg FilterConfig

	set          bool
	value        float64
	velocity     float64
	acceleration float64
	predicted    float64

	recent [RecentSize]float64
	n      int
	head   int
}

// NewFilter creates a Filter with no value yet.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// Update feeds one raw measurement and returns the conditioned value.
func (f *Filter) Update(raw float64) float64 {
	if !f.set {
		f.set = true
		f.value = raw
		f.predicted = raw
		f.remember(raw)
		return raw
	}

	prevVelocity := f.velocity
	f.velocity = raw - f.value
	f.acceleration = f.velocity - prevVelocity

	diff := math.Abs(raw - f.value)
	direction := -1.0
	if raw > f.value {
		direction = 1.0
	}

	alpha := clamp(f.cfg.BaseAlpha-diff*f.cfg.Responsiveness*direction, f.cfg.MinAlpha, f.cfg.MaxAlpha)
	filtered := alpha*raw + (1-alpha)*f.value

	predicted := filtered + f.velocity*f.cfg.PredictionFactor + f.acceleration*f.cfg.AccelerationFactor
	predicted = clamp(predicted, filtered-f.cfg.MaxPrediction, filtered+f.cfg.MaxPrediction)

	f.value = filtered
	f.predicted = predicted
	f.remember(filtered)

	if f.cfg.Predictive() {
		return predicted
	}
	return filtered
}

func (f *Filter) remember(v float64) {
	f.recent[f.head] = v
	f.head = (f.head + 1) % RecentSize
	if f.n < RecentSize {
		f.n++
	}
}

// Ready reports whether the filter has seen a measurement.
func (f *Filter) Ready() bool { return f.set }

// Value returns the last filtered value.
func (f *Filter) Value() float64 { return f.value }

// Predicted returns the last predicted value.
func (f *Filter) Predicted() float64 { return f.predicted }

// Velocity returns raw minus the previous filtered value from the last update.
func (f *Filter) Velocity() float64 { return f.velocity }

// Acceleration returns the change in velocity from the last update.
func (f *Filter) Acceleration() float64 { return f.acceleration }

// Recent returns up to RecentSize filtered values, oldest first.
func (f *Filter) Recent() []float64 {
	out := make([]float64, 0, f.n)
	start := (f.head - f.n + RecentSize) % RecentSize
	for i := 0; i < f.n; i++ {
		out = append(out, f.recent[(start+i)%RecentSize])
	}
	return out
}

// Reset returns the filter to its initial "no value yet" state.
func (f *Filter) Reset() {
	*f = Filter{cfg: f.cfg}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
