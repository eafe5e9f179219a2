package gesture

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return t0.Add(d) }

func TestNextDetector_FiresAfterHold(t *testing.T) {
	d := NewNextDetector(DefaultNextConfig())

	_, ok := d.Update(at(0), true)
	assert.False(t, ok)
	assert.True(t, d.Holding())

	_, ok = d.Update(at(500*time.Millisecond), true)
	assert.False(t, ok)
	assert.Equal(t, 500*time.Millisecond, d.Remaining(at(500*time.Millisecond)))

	ev, ok := d.Update(at(time.Second), true)
	require.True(t, ok)
	assert.Equal(t, Fired, ev.Kind)
	assert.Equal(t, Next, ev.Gesture)
	assert.False(t, d.Holding())
	assert.Zero(t, d.Remaining(at(time.Second)))
}

func TestNextDetector_HoldThenBreak(t *testing.T) {
	d := NewNextDetector(DefaultNextConfig())
	d.Update(at(0), true)
	d.Update(at(300*time.Millisecond), true)

	ev, ok := d.Update(at(400*time.Millisecond), false)
	require.True(t, ok)
	assert.Equal(t, Failed, ev.Kind)
	assert.Equal(t, Next, ev.Gesture)
	assert.Equal(t, ReasonNoBothHands, ev.Context)
	assert.False(t, d.Holding())

	_, ok = d.Update(at(500*time.Millisecond), false)
	assert.False(t, ok, "an idle detector reports nothing")
}

func TestNextDetector_MinimumSpacing(t *testing.T) {
	d := NewNextDetector(DefaultNextConfig())
	frame := 33 * time.Millisecond

	var fires []time.Time
	for now := at(0); now.Before(at(12 * time.Second)); now = now.Add(frame) {
		if ev, ok := d.Update(now, true); ok {
			require.Equal(t, Fired, ev.Kind)
			fires = append(fires, now)
		}
	}

	require.GreaterOrEqual(t, len(fires), 3)
	for i := 1; i < len(fires); i++ {
		assert.GreaterOrEqual(t, fires[i].Sub(fires[i-1]), 2500*time.Millisecond)
	}
}

func TestNextDetector_Reset(t *testing.T) {
	d := NewNextDetector(DefaultNextConfig())
	d.Update(at(0), true)
	_, fired := d.Update(at(time.Second), true)
	require.True(t, fired)
	d.Reset()
	assert.False(t, d.Holding())

	// The spacing clock is cleared too, so a new hold fires within 2.5s.
	d.Update(at(1100*time.Millisecond), true)
	_, ok := d.Update(at(2100*time.Millisecond), true)
	assert.True(t, ok)
}
