package detector

import "gocv.io/x/gocv"

// Detector finds hands in a video frame.
type Detector interface {
	// Detect returns the hands found in frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect.
	MaxHands int `yaml:"max_hands"`

	// MinConfidence is the minimum detection confidence (0.0-1.0).
	MinConfidence float64 `yaml:"min_confidence"`

	// MinTrackingConf is the minimum tracking confidence (0.0-1.0).
	MinTrackingConf float64 `yaml:"min_tracking_confidence"`

	// Scale resizes frames before detection. 0.5 halves both sides.
	Scale float64 `yaml:"scale"`

	// Script overrides the MediaPipe service script location.
	Script string `yaml:"script"`
}

// DefaultConfig tracks two hands at 0.7 confidence on half-size frames.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.7,
		MinTrackingConf: 0.7,
		Scale:           0.5,
	}
}
