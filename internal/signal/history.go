package signal

import "gonum.org/v1/gonum/stat"

// Window sizes for the distance histories.
const (
	DecisionWindow  = 5
	StabilityWindow = 20
)

// History is a fixed-capacity FIFO of float64 samples.
type History struct {
	buf  []float64
	head int
	n    int
}

// NewHistory creates a History holding at most capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest sample when full.
func (h *History) Push(v float64) {
	h.buf[h.head] = v
	h.head = (h.head + 1) % len(h.buf)
	if h.n < len(h.buf) {
		h.n++
	}
}

// Len returns the number of samples held.
func (h *History) Len() int { return h.n }

// Cap returns the capacity.
func (h *History) Cap() int { return len(h.buf) }

// Values returns the samples oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, h.n)
	start := (h.head - h.n + len(h.buf)) % len(h.buf)
	for i := range out {
		out[i] = h.buf[(start+i)%len(h.buf)]
	}
	return out
}

// Last returns the newest sample and false when empty.
func (h *History) Last() (float64, bool) {
	if h.n == 0 {
		return 0, false
	}
	return h.buf[(h.head-1+len(h.buf))%len(h.buf)], true
}

// Mean returns the arithmetic mean, or 0 when empty.
func (h *History) Mean() float64 {
	if h.n == 0 {
		return 0
	}
	return stat.Mean(h.Values(), nil)
}

// Stability returns the population standard deviation of the samples, or 0
// with fewer than two samples.
func (h *History) Stability() float64 {
	if h.n < 2 {
		return 0
	}
	_, std := stat.PopMeanStdDev(h.Values(), nil)
	return std
}

// Reset drops all samples.
func (h *History) Reset() {
	h.head = 0
	h.n = 0
}

// Tracker keeps the decision and stability windows for one hand's smoothed
// distance.
type Tracker struct {
	Decision  *History
	Stability *History
}

// NewTracker creates a Tracker with the given window sizes.
func NewTracker(decision, stability int) *Tracker {
	return &Tracker{
		Decision:  NewHistory(decision),
		Stability: NewHistory(stability),
	}
}

// Push appends a smoothed distance to both windows.
func (t *Tracker) Push(v float64) {
	t.Decision.Push(v)
	t.Stability.Push(v)
}

// StdDev returns the stability window's population standard deviation.
func (t *Tracker) StdDev() float64 {
	return t.Stability.Stability()
}

// Reset clears both windows.
func (t *Tracker) Reset() {
	t.Decision.Reset()
	t.Stability.Reset()
}
