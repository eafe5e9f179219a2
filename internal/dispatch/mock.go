package dispatch

import (
	"context"
	"errors"
	"sync"
)

// ErrMockFailure is returned by MockSink when told to fail.
var ErrMockFailure = errors.New("mock sink failure")

// Call records one MockSink invocation.
type Call struct {
	Action Action
	Value  float64
	Paused bool
}

// MockSink is an in-memory Sink for testing. It tracks the player state the
// commands would produce.
type MockSink struct {
	mu        sync.Mutex
	calls     []Call
	speed     float64
	volume    float64
	paused    bool
	failures  int
	statusErr error
	block     chan struct{}
}

// NewMockSink creates a playing sink at 1x and full volume.
func NewMockSink() *MockSink {
	return &MockSink{speed: 1, volume: 1}
}

// FailNext makes the next n commands fail. IsPaused is not affected.
func (m *MockSink) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = n
}

// SetStatusError makes IsPaused fail with err; nil restores it.
func (m *MockSink) SetStatusError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusErr = err
}

// SetPlayerPaused changes the player's state as if the user clicked.
func (m *MockSink) SetPlayerPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

// Block makes commands wait until Unblock is called or ctx ends.
func (m *MockSink) Block() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.block = make(chan struct{})
}

// Unblock releases blocked commands.
func (m *MockSink) Unblock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.block != nil {
		close(m.block)
		m.block = nil
	}
}

// Calls returns a copy of the recorded commands.
func (m *MockSink) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Speed returns the last applied speed.
func (m *MockSink) Speed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speed
}

// Volume returns the last applied volume.
func (m *MockSink) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *MockSink) do(ctx context.Context, c Call, apply func()) error {
	m.mu.Lock()
	block := m.block
	m.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	if m.failures > 0 {
		m.failures--
		return ErrMockFailure
	}
	apply()
	return nil
}

func (m *MockSink) SetSpeed(ctx context.Context, speed float64) error {
	return m.do(ctx, Call{Action: ActionSpeed, Value: speed}, func() { m.speed = speed })
}

func (m *MockSink) SetVolume(ctx context.Context, volume float64) error {
	return m.do(ctx, Call{Action: ActionVolume, Value: volume}, func() { m.volume = volume })
}

func (m *MockSink) SetPaused(ctx context.Context, paused bool) error {
	return m.do(ctx, Call{Action: ActionPause, Paused: paused}, func() { m.paused = paused })
}

func (m *MockSink) Next(ctx context.Context) error {
	return m.do(ctx, Call{Action: ActionNext}, func() { m.paused = false })
}

func (m *MockSink) IsPaused(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return false, m.statusErr
	}
	return m.paused, nil
}
