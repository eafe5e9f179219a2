package server

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/capture"
)

// StreamHandler serves the live preview as MJPEG.
type StreamHandler struct {
	preview *capture.Preview
	fps     float64
}

// NewStreamHandler creates a StreamHandler sending at most fps frames per
// second. A non-positive fps defaults to 15.
func NewStreamHandler(preview *capture.Preview, fps float64) *StreamHandler {
	if fps <= 0 {
		fps = 15
	}
	return &StreamHandler{preview: preview, fps: fps}
}

// ServeHTTP streams MJPEG frames until the client disconnects.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stop := h.preview.Watch()
	defer stop()

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	limiter := rate.NewLimiter(rate.Limit(h.fps), 1)
	var last uint64
	for {
		if err := limiter.Wait(r.Context()); err != nil {
			return
		}

		frame, seq := h.preview.Latest()
		if frame == nil || seq == last {
			continue
		}
		last = seq

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(frame))
		if _, err := w.Write(frame); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}
