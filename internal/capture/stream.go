package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/metrics"
)

// Frame is a captured image with its capture metadata. The receiver closes
// Mat.
type Frame struct {
	Mat *gocv.Mat
	// Seq numbers captured frames from 1, including ones dropped later.
	Seq uint64
	At  time.Time
}

// Close releases the image.
func (f *Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
	}
}

// StreamConfig configures the reader loop.
type StreamConfig struct {
	// Buffer is the number of frames kept for the consumer. When full the
	// oldest frame is dropped.
	Buffer int `yaml:"buffer"`
	// Mirror flips frames horizontally so the image matches the user.
	Mirror bool `yaml:"mirror"`
	// RetryDelay is the pause after a failed read.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// DefaultStreamConfig keeps three mirrored frames and retries after 100ms.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{Buffer: 3, Mirror: true, RetryDelay: 100 * time.Millisecond}
}

// Stream reads a Camera on its own goroutine so slow processing never
// stalls capture.
type Stream struct {
	cam      Camera
	cfg      StreamConfig
	frames   chan *Frame
	captured atomic.Uint64
	dropped  atomic.Uint64
	log      zerolog.Logger
}

// NewStream creates a Stream over cam. cam must already be open.
func NewStream(cam Camera, cfg StreamConfig) *Stream {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultStreamConfig().Buffer
	}
	return &Stream{
		cam:    cam,
		cfg:    cfg,
		frames: make(chan *Frame, cfg.Buffer),
		log:    logging.For("capture"),
	}
}

// Frames delivers captured frames. It is closed when Run returns.
func (s *Stream) Frames() <-chan *Frame { return s.frames }

// Captured returns the number of frames read so far.
func (s *Stream) Captured() uint64 { return s.captured.Load() }

// Dropped returns the number of frames discarded because the buffer was full.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

// Run reads until ctx is done or the camera reports ErrEndOfStream. Other
// read errors are logged and retried after RetryDelay.
func (s *Stream) Run(ctx context.Context) error {
	defer close(s.frames)

	for {
		if ctx.Err() != nil {
			return nil
		}

		mat, err := s.cam.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				s.log.Info().Uint64("captured", s.Captured()).Msg("camera stream ended")
				return nil
			}
			if errors.Is(err, ErrCameraNotOpen) {
				return err
			}
			s.log.Warn().Err(err).Msg("failed to capture frame, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(s.cfg.RetryDelay):
			}
			continue
		}

		if s.cfg.Mirror {
			gocv.Flip(*mat, mat, 1)
		}

		f := &Frame{Mat: mat, Seq: s.captured.Add(1), At: time.Now()}
		metrics.FramesCaptured.Inc()
		s.push(f)
	}
}

// push queues f, dropping the oldest queued frame when the buffer is full.
// Run is the only sender, so after one receive there is room.
func (s *Stream) push(f *Frame) {
	select {
	case s.frames <- f:
		return
	default:
	}

	select {
	case old := <-s.frames:
		old.Close()
		s.dropped.Add(1)
		metrics.FramesDropped.Inc()
	default:
	}

	select {
	case s.frames <- f:
	default:
		f.Close()
		s.dropped.Add(1)
		metrics.FramesDropped.Inc()
	}
}
