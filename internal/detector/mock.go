package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector returns preset hands. Results can be a fixed set or a queue
// consumed one per Detect call.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	queue [][]HandLandmarks
	err   error
	calls int
}

// NewMockDetector creates a MockDetector that finds no hands.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands returned once the queue is empty.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// Enqueue adds per-frame results returned before the fixed hands.
func (m *MockDetector) Enqueue(frames ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many frames were passed to Detect.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockDetector) Detect(*gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.hands, nil
}

func (m *MockDetector) Close() error {
	return nil
}

// PinchLandmarks returns a hand whose thumb and index tips are distance
// apart, measured in units of frame width, on a square frame.
func PinchLandmarks(handedness string, distance float64) HandLandmarks {
	h := HandLandmarks{Handedness: handedness, Score: 0.95}

	x := 0.3
	if handedness == RightHand {
		x = 0.7
	}
	h.Points[Wrist] = Point3D{X: x, Y: 0.8}
	h.Points[ThumbMCP] = Point3D{X: x - 0.05, Y: 0.65}
	h.Points[IndexMCP] = Point3D{X: x, Y: 0.6}
	h.Points[MiddleMCP] = Point3D{X: x + 0.02, Y: 0.6}
	h.Points[ThumbTip] = Point3D{X: x, Y: 0.5}
	h.Points[IndexTip] = Point3D{X: x + distance, Y: 0.5}
	return h
}
