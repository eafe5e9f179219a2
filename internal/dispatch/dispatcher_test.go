package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type results struct {
	mu  sync.Mutex
	out []Result
}

func (r *results) observe(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.out = append(r.out, res)
}

func (r *results) all() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Result(nil), r.out...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Backoff = time.Millisecond
	cfg.StatusInterval = 0
	return cfg
}

func start(t *testing.T, sink Sink, cfg Config) (*Dispatcher, *results) {
	t.Helper()
	r := &results{}
	d := New(sink, cfg, r.observe)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	d.Start(ctx)
	return d, r
}

func waitFor(t *testing.T, r *results, n int) []Result {
	t.Helper()
	require.Eventually(t, func() bool { return len(r.all()) >= n }, 2*time.Second, 5*time.Millisecond)
	return r.all()
}

func TestDispatcher_AppliesInOrder(t *testing.T) {
	sink := NewMockSink()
	d, r := start(t, sink, testConfig())

	require.NoError(t, d.Submit(Command{Action: ActionSpeed, Gesture: "Speed Up", Value: 1.25, Frame: 1}))
	require.NoError(t, d.Submit(Command{Action: ActionVolume, Gesture: "Volume Down", Value: 0.9, Frame: 2}))
	require.NoError(t, d.Submit(Command{Action: ActionNext, Gesture: "Next", Frame: 3}))

	got := waitFor(t, r, 3)
	for i, res := range got {
		assert.True(t, res.Success, "result %d", i)
		assert.Equal(t, 1, res.Attempts)
		assert.Equal(t, uint64(i+1), res.Command.Frame)
	}
	assert.Equal(t, []Call{
		{Action: ActionSpeed, Value: 1.25},
		{Action: ActionVolume, Value: 0.9},
		{Action: ActionNext},
	}, sink.Calls())
	assert.Equal(t, 1.25, sink.Speed())
	assert.Equal(t, 0.9, sink.Volume())
}

func TestDispatcher_RetriesThenRecovers(t *testing.T) {
	sink := NewMockSink()
	sink.FailNext(2)
	d, r := start(t, sink, testConfig())

	require.NoError(t, d.Submit(Command{Action: ActionSpeed, Value: 1.5}))
	got := waitFor(t, r, 1)

	assert.True(t, got[0].Success)
	assert.Equal(t, 3, got[0].Attempts)
	assert.False(t, d.Degraded())
}

func TestDispatcher_Degraded(t *testing.T) {
	sink := NewMockSink()
	sink.FailNext(4)
	d, r := start(t, sink, testConfig())

	require.NoError(t, d.Submit(Command{Action: ActionVolume, Value: 0.5}))
	got := waitFor(t, r, 1)
	assert.False(t, got[0].Success)
	assert.ErrorIs(t, got[0].Err, ErrMockFailure)
	assert.Equal(t, 3, got[0].Attempts)
	assert.True(t, d.Degraded())

	// Degraded sinks get one attempt.
	require.NoError(t, d.Submit(Command{Action: ActionVolume, Value: 0.4}))
	got = waitFor(t, r, 2)
	assert.False(t, got[1].Success)
	assert.Equal(t, 1, got[1].Attempts)

	require.NoError(t, d.Submit(Command{Action: ActionVolume, Value: 0.3}))
	got = waitFor(t, r, 3)
	assert.True(t, got[2].Success)
	assert.False(t, d.Degraded())
}

func TestDispatcher_AnySuccessfulCallClearsDegraded(t *testing.T) {
	t.Run("live state check", func(t *testing.T) {
		sink := NewMockSink()
		sink.FailNext(3)
		d, r := start(t, sink, testConfig())

		require.NoError(t, d.Submit(Command{Action: ActionSpeed, Value: 1.5}))
		waitFor(t, r, 1)
		require.True(t, d.Degraded())

		sink.SetPlayerPaused(true)
		require.NoError(t, d.Submit(Command{Action: ActionPause, Gesture: "Pause", Paused: true}))
		got := waitFor(t, r, 2)
		assert.ErrorIs(t, got[1].Err, ErrAlreadyInState)
		assert.False(t, d.Degraded())
	})

	t.Run("status poll", func(t *testing.T) {
		sink := NewMockSink()
		sink.FailNext(3)
		cfg := testConfig()
		cfg.StatusInterval = 10 * time.Millisecond
		d, r := start(t, sink, cfg)

		require.NoError(t, d.Submit(Command{Action: ActionSpeed, Value: 1.5}))
		got := waitFor(t, r, 1)
		require.False(t, got[0].Success)

		assert.Eventually(t, func() bool { return !d.Degraded() }, time.Second, 5*time.Millisecond)
	})
}

func TestDispatcher_PauseConsultsLiveState(t *testing.T) {
	t.Run("pauses a playing player", func(t *testing.T) {
		sink := NewMockSink()
		d, r := start(t, sink, testConfig())

		require.NoError(t, d.Submit(Command{Action: ActionPause, Gesture: "Pause", Paused: true, Context: "Pause video"}))
		got := waitFor(t, r, 1)
		assert.True(t, got[0].Success)
		assert.Equal(t, "Pause video", got[0].Status())
		assert.Equal(t, []Call{{Action: ActionPause, Paused: true}}, sink.Calls())
		assert.Equal(t, true, d.PlayerState().Paused)
	})

	t.Run("skips when already paused", func(t *testing.T) {
		sink := NewMockSink()
		sink.SetPlayerPaused(true)
		d, r := start(t, sink, testConfig())

		require.NoError(t, d.Submit(Command{Action: ActionPause, Gesture: "Pause", Paused: true}))
		got := waitFor(t, r, 1)
		assert.False(t, got[0].Success)
		assert.ErrorIs(t, got[0].Err, ErrAlreadyInState)
		assert.Equal(t, "already paused", got[0].Status())
		assert.Empty(t, sink.Calls())
		assert.False(t, d.Degraded())
	})
}

func TestDispatcher_NoSink(t *testing.T) {
	d, r := start(t, nil, testConfig())

	require.NoError(t, d.Submit(Command{Action: ActionNext}))
	got := waitFor(t, r, 1)
	assert.ErrorIs(t, got[0].Err, ErrSinkUnavailable)
	assert.Equal(t, "media player not connected", got[0].Status())
	assert.False(t, d.PlayerState().Known)
}

func TestDispatcher_PlayerState(t *testing.T) {
	sink := NewMockSink()
	sink.SetPlayerPaused(true)
	cfg := testConfig()
	cfg.StatusInterval = 5 * time.Millisecond
	d, _ := start(t, sink, cfg)

	require.Eventually(t, func() bool { return d.PlayerState().Known && d.PlayerState().Paused }, time.Second, 5*time.Millisecond)

	sink.SetPlayerPaused(false)
	require.Eventually(t, func() bool { return d.PlayerState().Known && !d.PlayerState().Paused }, time.Second, 5*time.Millisecond)

	sink.SetStatusError(errors.New("gone"))
	require.Eventually(t, func() bool { return !d.PlayerState().Known }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_SubmitNeverBlocks(t *testing.T) {
	sink := NewMockSink()
	sink.Block()
	t.Cleanup(sink.Unblock)

	cfg := testConfig()
	cfg.QueueSize = 2
	d, _ := start(t, sink, cfg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			err := d.Submit(Command{Action: ActionSpeed, Value: 1})
			if err != nil {
				assert.ErrorIs(t, err, ErrQueueFull)
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a slow sink")
	}
}

func TestDispatcher_SubmitValidates(t *testing.T) {
	d := New(NewMockSink(), testConfig(), nil)

	tests := []struct {
		name string
		cmd  Command
	}{
		{"speed too high", Command{Action: ActionSpeed, Value: 2.5}},
		{"speed too low", Command{Action: ActionSpeed, Value: 0.1}},
		{"volume negative", Command{Action: ActionVolume, Value: -0.1}},
		{"volume above one", Command{Action: ActionVolume, Value: 1.1}},
		{"unknown action", Command{Action: Action(42)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, d.Submit(tt.cmd), ErrInvalidArgument)
		})
	}
	assert.Zero(t, d.Pending())
}

func TestDispatcher_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 1
	d := New(NewMockSink(), cfg, nil)

	require.NoError(t, d.Submit(Command{Action: ActionNext}))
	assert.ErrorIs(t, d.Submit(Command{Action: ActionNext}), ErrQueueFull)
}

func TestDispatcher_Closed(t *testing.T) {
	d := New(NewMockSink(), testConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, d.Run(ctx))

	assert.ErrorIs(t, d.Submit(Command{Action: ActionNext}), ErrClosed)
}

func TestDispatcher_Wait(t *testing.T) {
	sink := NewMockSink()
	sink.Block()
	d, r := start(t, sink, testConfig())

	require.True(t, d.Idle())
	require.NoError(t, d.Submit(Command{Action: ActionNext, Gesture: "Next", Frame: 1}))
	assert.False(t, d.Idle())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

	sink.Unblock()
	require.NoError(t, d.Wait(context.Background()))
	assert.True(t, d.Idle())
	assert.Len(t, r.all(), 1)
}
