// Package tray provides the system tray menu: enable toggle, last gesture
// and current playback settings.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/telemetry"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onSettings func()
	onQuit     func()
	enabled    bool
	speed      float64
	volume     float64
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
	menuPlayback    *systray.MenuItem
}

// New creates a new Tray showing the given enabled state and playback
// settings.
func New(enabled bool, speed, volume float64) *Tray {
	return &Tray{
		enabled: enabled,
		speed:   speed,
		volume:  volume,
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnSettings sets the callback function to be called when the dashboard menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra pinch gesture media control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle gesture control")
	systray.AddSeparator()

	t.menuLastGesture = systray.AddMenuItem(lastGestureTitle(""), "Last gesture outcome")
	t.menuLastGesture.Disable()
	t.menuPlayback = systray.AddMenuItem(playbackTitle(t.speed, t.volume), "Current speed and volume")
	t.menuPlayback.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the enabled state and notifies the toggle callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleSettings handles the dashboard menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetLastGesture updates the last gesture display in the menu.
func (t *Tray) SetLastGesture(label string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastGestureTitle(label))
	}
}

// SetPlayback updates the speed and volume display.
func (t *Tray) SetPlayback(speed, volume float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.speed, t.volume = speed, volume
	if t.menuPlayback != nil {
		t.menuPlayback.SetTitle(playbackTitle(speed, volume))
	}
}

// Playback returns the displayed speed and volume.
func (t *Tray) Playback() (speed, volume float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.speed, t.volume
}

// Write shows each outcome as the last gesture and tracks applied speed and
// volume changes. It makes Tray a telemetry.Sink.
func (t *Tray) Write(o telemetry.Outcome) {
	t.SetLastGesture(outcomeLabel(o))
	if !o.Success {
		return
	}

	speed, volume := t.Playback()
	switch o.Gesture {
	case gesture.SpeedUp, gesture.SpeedDown:
		t.SetPlayback(o.Value, volume)
	case gesture.VolumeUp, gesture.VolumeDown:
		t.SetPlayback(speed, o.Value)
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastGestureTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}

func playbackTitle(speed, volume float64) string {
	return fmt.Sprintf("Speed %.2fx · Volume %d%%", speed, int(volume*100+0.5))
}

func outcomeLabel(o telemetry.Outcome) string {
	if o.Success {
		return o.Gesture
	}
	return fmt.Sprintf("%s (failed: %s)", o.Gesture, o.Status)
}
