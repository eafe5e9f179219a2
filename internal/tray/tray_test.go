package tray

import (
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/telemetry"
)

func TestTray_ToggleBeforeReady(t *testing.T) {
	tr := New(true, 1, 1)

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] != false || got[1] != true {
		t.Errorf("toggle callbacks = %v, want [false true]", got)
	}
	if !tr.IsEnabled() {
		t.Error("IsEnabled() = false after two toggles")
	}
}

func TestTray_UpdatesBeforeReady(t *testing.T) {
	tr := New(false, 1, 1)

	// Menu items do not exist yet; updates must be ignored.
	tr.SetLastGesture("Pause")
	tr.SetPlayback(1.25, 0.9)
	tr.Write(telemetry.Outcome{Gesture: "Next", Success: true})

	if tr.IsEnabled() {
		t.Error("IsEnabled() = true, want false")
	}
}

func TestTray_WriteTracksPlayback(t *testing.T) {
	tr := New(true, 1, 1)

	tr.Write(telemetry.Outcome{Gesture: gesture.SpeedUp, Success: true, Value: 1.25})
	tr.Write(telemetry.Outcome{Gesture: gesture.VolumeDown, Success: true, Value: 0.9})
	tr.Write(telemetry.Outcome{Gesture: gesture.SpeedUp, Value: 1.5, Status: "media player not connected"})

	speed, volume := tr.Playback()
	if speed != 1.25 || volume != 0.9 {
		t.Errorf("Playback() = %v, %v; want 1.25, 0.9", speed, volume)
	}
}

func TestTray_Settings(t *testing.T) {
	tr := New(true, 1, 1)
	called := false
	tr.OnSettings(func() { called = true })
	tr.handleSettings()
	if !called {
		t.Error("settings callback not called")
	}
}

func TestTitles(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"enabled", toggleTitle(true), "● Enabled"},
		{"disabled", toggleTitle(false), "○ Disabled"},
		{"no gesture", lastGestureTitle(""), "Last: none"},
		{"gesture", lastGestureTitle("Next"), "Last: Next"},
		{"playback", playbackTitle(1.25, 0.9), "Speed 1.25x · Volume 90%"},
		{"success", outcomeLabel(telemetry.Outcome{Gesture: "Pause", Success: true}), "Pause"},
		{"failure", outcomeLabel(telemetry.Outcome{Gesture: "Pause", Status: "already paused"}), "Pause (failed: already paused)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
