package app

import (
	"time"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/engine"
	"github.com/ayusman/mudra/internal/metrics"
)

// process is the frame loop. It runs until the stream closes.
//
// Per frame:
//  1. Update the preview if anyone is watching
//  2. Skip detection while disabled
//  3. Detect hands and measure each one's pinch distance
//  4. Run the engine, which submits commands and records failures
func (a *App) process(stream *capture.Stream) {
	wasEnabled := a.IsEnabled()

	for f := range stream.Frames() {
		if err := a.preview.Update(f.Mat, f.Seq); err != nil {
			a.log.Debug().Err(err).Msg("failed to encode preview frame")
		}

		enabled := a.IsEnabled()
		if !enabled {
			if wasEnabled {
				// Disabling is a sensor gap: active holds fail instead of
				// resuming when processing comes back.
				a.engine.Process(engine.Frame{Seq: f.Seq, Timestamp: f.At, Captured: stream.Captured()})
			}
			wasEnabled = false
			f.Close()
			continue
		}
		wasEnabled = true

		a.processFrame(f, stream.Captured())
		f.Close()
	}
}

func (a *App) processFrame(f *capture.Frame, captured uint64) {
	start := time.Now()
	hands, err := a.detector.Detect(f.Mat)
	if err != nil {
		a.log.Warn().Err(err).Uint64("frame", f.Seq).Msg("hand detection failed")
		hands = nil
	}

	width, height := f.Mat.Cols(), f.Mat.Rows()
	obs := observations(hands, width, height)
	elapsed := time.Since(start)

	events := a.engine.Process(engine.Frame{
		Seq:            f.Seq,
		Timestamp:      f.At,
		Hands:          obs,
		ProcessingTime: elapsed,
		Captured:       captured,
	})
	metrics.ObserveFrame(len(obs), time.Since(start).Seconds())

	if len(events) > 0 {
		a.log.Debug().Uint64("frame", f.Seq).Int("events", len(events)).Msg("frame produced events")
	}
}

// observations converts detected hands to pinch distances. Only the first
// hand of each side is used.
func observations(hands []detector.HandLandmarks, width, height int) []engine.Observation {
	obs := make([]engine.Observation, 0, len(hands))
	var seenLeft, seenRight bool
	for i := range hands {
		h := &hands[i]
		side := engine.Right
		if h.IsLeft() {
			if seenLeft {
				continue
			}
			side, seenLeft = engine.Left, true
		} else {
			if seenRight {
				continue
			}
			seenRight = true
		}
		obs = append(obs, engine.Observation{Side: side, Distance: h.PinchDistance(width, height)})
	}
	return obs
}
