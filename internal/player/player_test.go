package player

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/dispatch"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
)

// installPlugin writes a media plugin whose executable is script into
// root/name and returns root.
func installPlugin(t *testing.T, root, name string, actions []string, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	manifest, err := json.Marshal(plugin.Manifest{Name: name, Executable: "run.sh", Actions: actions})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), manifest, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.sh"), []byte("#!/bin/sh\n"+script), 0755))
}

// statefulScript keeps the paused flag in a file next to the script.
const statefulScript = `INPUT=$(cat)
STATE=./paused
[ -f "$STATE" ] || echo false > "$STATE"
case "$INPUT" in
  *'"action":"status"'*)
    echo "{\"success\":true,\"data\":{\"player\":\"test\",\"paused\":$(cat "$STATE")}}" ;;
  *'"paused":true'*)
    echo true > "$STATE"; echo '{"success":true}' ;;
  *'"paused":false'*|*'"action":"next"'*)
    echo false > "$STATE"; echo '{"success":true}' ;;
  *)
    echo '{"success":true}' ;;
esac
`

func TestOpen_SelectsMediaPlugin(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "keys", []string{plugin.ActionNext}, `echo '{"success":true}'`)
	installPlugin(t, root, "media-control", plugin.MediaActions, statefulScript)

	sink, err := Open(plugin.NewManager(root), plugin.NewExecutor(5*time.Second), "")
	require.NoError(t, err)
	assert.Equal(t, "media-control", sink.Name())

	_, err = Open(plugin.NewManager(root), plugin.NewExecutor(5*time.Second), "keys")
	assert.Error(t, err, "a plugin without every media action is rejected")

	_, err = Open(plugin.NewManager(root), plugin.NewExecutor(5*time.Second), "missing")
	assert.ErrorIs(t, err, plugin.ErrPluginNotFound)
}

func TestPluginSink_PauseRoundTrip(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "media-control", plugin.MediaActions, statefulScript)

	sink, err := Open(plugin.NewManager(root), plugin.NewExecutor(5*time.Second), "media-control")
	require.NoError(t, err)
	ctx := context.Background()

	paused, err := sink.IsPaused(ctx)
	require.NoError(t, err)
	assert.False(t, paused)

	require.NoError(t, sink.SetPaused(ctx, true))
	paused, err = sink.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	require.NoError(t, sink.Next(ctx))
	st, err := sink.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Paused)
	assert.Equal(t, "test", st.Player)

	require.NoError(t, sink.SetSpeed(ctx, 1.5))
	require.NoError(t, sink.SetVolume(ctx, 0.4))
}

func TestPluginSink_FailureIsUnavailable(t *testing.T) {
	root := t.TempDir()
	installPlugin(t, root, "media-control", plugin.MediaActions,
		`cat > /dev/null; echo '{"success":false,"error":"no players found"}'`)

	sink, err := Open(plugin.NewManager(root), plugin.NewExecutor(5*time.Second), "")
	require.NoError(t, err)

	err = sink.SetSpeed(context.Background(), 1.25)
	assert.ErrorIs(t, err, dispatch.ErrSinkUnavailable)
	assert.ErrorIs(t, err, plugin.ErrActionFailed)
}

func TestDryRun_WithDispatcher(t *testing.T) {
	sink := NewDryRun()

	var results []dispatch.Result
	done := make(chan struct{}, 8)
	d := dispatch.New(sink, dispatch.DefaultConfig(), func(r dispatch.Result) {
		results = append(results, r)
		done <- struct{}{}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	require.Eventually(t, func() bool { return d.PlayerState().Known }, time.Second, 5*time.Millisecond)
	assert.Equal(t, gesture.PlayerState{Known: true, Paused: false}, d.PlayerState())

	cmds := []dispatch.Command{
		{Action: dispatch.ActionPause, Gesture: gesture.Pause, Paused: true},
		{Action: dispatch.ActionSpeed, Gesture: gesture.SpeedUp, Value: 1.25},
		{Action: dispatch.ActionVolume, Gesture: gesture.VolumeDown, Value: 0.9},
		{Action: dispatch.ActionNext, Gesture: gesture.Next},
	}
	for _, c := range cmds {
		require.NoError(t, d.Submit(c))
	}
	for range cmds {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for dispatch results")
		}
	}

	for _, r := range results {
		assert.True(t, r.Success, "%s: %v", r.Command.Action, r.Err)
	}
	st := sink.Status()
	assert.Equal(t, 1.25, st.Speed)
	assert.Equal(t, 0.9, st.Volume)
	assert.False(t, st.Paused, "next resumes playback")
	assert.Equal(t, 1, sink.Skipped())
}
