package engine

import (
	"time"

	"github.com/ayusman/mudra/internal/signal"
	"github.com/ayusman/mudra/internal/telemetry"
)

// StatsConfig sets the windows used for frame statistics.
type StatsConfig struct {
	FPSWindow       int `yaml:"fps_window"`
	FrameTimeWindow int `yaml:"frame_time_window"`
}

// DefaultStatsConfig averages FPS over 10 frames and frame time over 100.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{FPSWindow: 10, FrameTimeWindow: 100}
}

type frameStats struct {
	frames     uint64
	withHands  uint64
	captured   uint64
	lastFrame  time.Time
	intervals  *signal.History
	frameTimes *signal.History
}

func newFrameStats(cfg StatsConfig) *frameStats {
	return &frameStats{
		intervals:  signal.NewHistory(max(1, cfg.FPSWindow-1)),
		frameTimes: signal.NewHistory(max(1, cfg.FrameTimeWindow)),
	}
}

func (s *frameStats) observe(f Frame, now time.Time) {
	s.frames++
	if len(f.Hands) > 0 {
		s.withHands++
	}
	s.captured = max(f.Captured, s.frames)
	if !s.lastFrame.IsZero() {
		if dt := now.Sub(s.lastFrame).Seconds(); dt > 0 {
			s.intervals.Push(dt)
		}
	}
	s.lastFrame = now
	if f.ProcessingTime > 0 {
		s.frameTimes.Push(f.ProcessingTime.Seconds())
	}
}

func (s *frameStats) snapshot(stability float64) telemetry.FrameStats {
	st := telemetry.FrameStats{
		Frames:            s.frames,
		FramesWithHands:   s.withHands,
		DistanceStability: stability,
		AvgFrameTime:      time.Duration(s.frameTimes.Mean() * float64(time.Second)),
	}
	if s.frames > 0 {
		st.HandDetectionRate = float64(s.withHands) / float64(s.frames)
	}
	if s.captured > 0 {
		st.ProcessingRate = float64(s.frames) / float64(s.captured)
	}
	if mean := s.intervals.Mean(); mean > 0 {
		st.FPS = 1 / mean
	}
	return st
}

func (s *frameStats) reset() {
	s.frames, s.withHands, s.captured = 0, 0, 0
	s.lastFrame = time.Time{}
	s.intervals.Reset()
	s.frameTimes.Reset()
}
