// Package telemetry records the outcome of every gesture decision and keeps
// per-gesture success counters.
package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/logging"
)

// FrameStats is a snapshot of pipeline health at the time of an outcome.
type FrameStats struct {
	Frames          uint64 `json:"frames"`
	FramesWithHands uint64 `json:"framesWithHands"`
	// FPS is the mean rate over the last few frames.
	FPS float64 `json:"fps"`
	// HandDetectionRate is FramesWithHands / Frames.
	HandDetectionRate float64 `json:"handDetectionRate"`
	// ProcessingRate is processed frames / captured frames.
	ProcessingRate float64 `json:"processingRate"`
	// DistanceStability is the standard deviation of recent smoothed
	// left-hand distances.
	DistanceStability float64       `json:"distanceStability"`
	AvgFrameTime      time.Duration `json:"avgFrameTime"`
}

// Outcome is one fired or failed gesture decision.
type Outcome struct {
	Frame   uint64    `json:"frame"`
	At      time.Time `json:"at"`
	Gesture string    `json:"gesture"`
	Success bool      `json:"success"`
	// Status is the human readable action status, e.g. "Speed: 1.25x".
	Status          string        `json:"status"`
	Value           float64       `json:"value,omitempty"`
	DecisionLatency time.Duration `json:"decisionLatency"`
	DispatchLatency time.Duration `json:"dispatchLatency"`
	Attempts        int           `json:"attempts"`
	Stats           FrameStats    `json:"stats"`
	SuccessRate     float64       `json:"successRate"`
}

// Sink consumes outcomes. Write must not block for long.
type Sink interface {
	Write(Outcome)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Outcome)

func (f SinkFunc) Write(o Outcome) { f(o) }

// Count tallies attempts for one gesture.
type Count struct {
	Success int `json:"success"`
	Total   int `json:"total"`
}

// Rate returns Success/Total, or 0 before any attempt.
func (c Count) Rate() float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Success) / float64(c.Total)
}

// Recorder updates counters and fans outcomes out to sinks.
type Recorder struct {
	mu     sync.Mutex
	counts map[string]Count
	sinks  []Sink
	last   *Outcome
	log    zerolog.Logger
}

// NewRecorder creates a Recorder writing to sinks.
func NewRecorder(sinks ...Sink) *Recorder {
	return &Recorder{
		counts: make(map[string]Count),
		sinks:  sinks,
		log:    logging.For("telemetry"),
	}
}

// AddSink registers another sink.
func (r *Recorder) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Record counts the outcome, fills in its success rate and forwards it.
// It is safe for concurrent use; sinks see outcomes one at a time.
func (r *Recorder) Record(o Outcome) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.counts[o.Gesture]
	c.Total++
	if o.Success {
		c.Success++
	}
	r.counts[o.Gesture] = c
	o.SuccessRate = c.Rate()
	r.last = &o

	ev := r.log.Info()
	if !o.Success {
		ev = r.log.Debug()
	}
	ev.Uint64("frame", o.Frame).
		Str("gesture", o.Gesture).
		Bool("success", o.Success).
		Str("status", o.Status).
		Dur("decision", o.DecisionLatency).
		Dur("dispatch", o.DispatchLatency).
		Float64("successRate", o.SuccessRate).
		Msg("gesture outcome")

	for _, s := range r.sinks {
		s.Write(o)
	}
	return o
}

// Counts returns a copy of the per-gesture counters.
func (r *Recorder) Counts() map[string]Count {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Count, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Gestures returns the names seen so far, sorted.
func (r *Recorder) Gestures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.counts))
	for k := range r.counts {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Last returns the most recent outcome.
func (r *Recorder) Last() (Outcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Outcome{}, false
	}
	return *r.last, true
}

// Reset clears the counters.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = make(map[string]Count)
	r.last = nil
}
