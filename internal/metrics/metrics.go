// Package metrics exposes Prometheus collectors for the frame pipeline, the
// gesture decisions and the dispatcher.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ayusman/mudra/internal/telemetry"
)

var (
	// Frame pipeline
	FramesCaptured = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mudra",
		Subsystem: "pipeline",
		Name:      "frames_captured_total",
		Help:      "Total frames read from the camera",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mudra",
		Subsystem: "pipeline",
		Name:      "frames_dropped_total",
		Help:      "Frames discarded because the processing buffer was full",
	})

	FramesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mudra",
		Subsystem: "pipeline",
		Name:      "frames_processed_total",
		Help:      "Frames run through detection, by number of hands found",
	}, []string{"hands"})

	FrameLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mudra",
		Subsystem: "pipeline",
		Name:      "frame_duration_seconds",
		Help:      "Detection plus decision time per frame",
		Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.033, 0.05, 0.1, 0.25},
	})

	FPS = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mudra",
		Subsystem: "pipeline",
		Name:      "fps",
		Help:      "Processed frames per second over the recent window",
	})

	HandDetectionRate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mudra",
		Subsystem: "pipeline",
		Name:      "hand_detection_ratio",
		Help:      "Fraction of processed frames with at least one hand",
	})

	// Gestures
	GestureOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mudra",
		Subsystem: "gesture",
		Name:      "outcomes_total",
		Help:      "Gesture outcomes by gesture and result",
	}, []string{"gesture", "result"})

	DecisionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mudra",
		Subsystem: "gesture",
		Name:      "decision_duration_seconds",
		Help:      "Time from frame arrival to decision",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
	}, []string{"gesture"})

	SuccessRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mudra",
		Subsystem: "gesture",
		Name:      "success_ratio",
		Help:      "Running success rate per gesture",
	}, []string{"gesture"})

	// Dispatcher
	DispatchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mudra",
		Subsystem: "dispatch",
		Name:      "command_duration_seconds",
		Help:      "Media player command duration including retries",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"action"})

	DispatchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mudra",
		Subsystem: "dispatch",
		Name:      "attempts_total",
		Help:      "Media player calls made, by action",
	}, []string{"action"})

	SinkDegraded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mudra",
		Subsystem: "dispatch",
		Name:      "sink_degraded",
		Help:      "1 while the media player is failing",
	})
)

// Recorder is a telemetry sink that updates the gesture collectors.
type Recorder struct{}

// Write implements telemetry.Sink.
func (Recorder) Write(o telemetry.Outcome) {
	result := "failed"
	if o.Success {
		result = "success"
	}
	GestureOutcomes.WithLabelValues(o.Gesture, result).Inc()
	SuccessRate.WithLabelValues(o.Gesture).Set(o.SuccessRate)
	if o.DecisionLatency > 0 {
		DecisionLatency.WithLabelValues(o.Gesture).Observe(o.DecisionLatency.Seconds())
	}
	FPS.Set(o.Stats.FPS)
	HandDetectionRate.Set(o.Stats.HandDetectionRate)
}

// ObserveDispatch records one completed dispatcher command.
func ObserveDispatch(action string, attempts int, seconds float64, degraded bool) {
	DispatchLatency.WithLabelValues(action).Observe(seconds)
	DispatchAttempts.WithLabelValues(action).Add(float64(attempts))
	if degraded {
		SinkDegraded.Set(1)
	} else {
		SinkDegraded.Set(0)
	}
}

// ObserveFrame records one processed frame.
func ObserveFrame(hands int, seconds float64) {
	FramesProcessed.WithLabelValues(handsLabel(hands)).Inc()
	FrameLatency.Observe(seconds)
}

func handsLabel(n int) string {
	switch {
	case n <= 0:
		return "0"
	case n == 1:
		return "1"
	default:
		return "2"
	}
}
