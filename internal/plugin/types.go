// Package plugin discovers and runs media player plugins. A plugin is an
// executable that reads one JSON Request on stdin and writes one JSON
// Response on stdout.
package plugin

import (
	"encoding/json"
	"slices"
)

// Actions understood by media player plugins.
const (
	ActionSetSpeed  = "set-speed"
	ActionSetVolume = "set-volume"
	ActionSetPaused = "set-paused"
	ActionNext      = "next"
	ActionStatus    = "status"
)

// MediaActions is the full action set a player plugin must support.
var MediaActions = []string{ActionSetSpeed, ActionSetVolume, ActionSetPaused, ActionNext, ActionStatus}

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Executable  string   `json:"executable"`
	Actions     []string `json:"actions"`
}

// Supports reports whether the manifest lists every given action.
func (m Manifest) Supports(actions ...string) bool {
	for _, a := range actions {
		if !slices.Contains(m.Actions, a) {
			return false
		}
	}
	return true
}

// Request is sent to a plugin on stdin.
type Request struct {
	Action string `json:"action"`
	// Gesture names the decision that produced the request, if any.
	Gesture string          `json:"gesture,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is read from a plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// SpeedParams is the payload of set-speed.
type SpeedParams struct {
	Speed float64 `json:"speed"`
}

// VolumeParams is the payload of set-volume.
type VolumeParams struct {
	Volume float64 `json:"volume"`
}

// PausedParams is the payload of set-paused.
type PausedParams struct {
	Paused bool `json:"paused"`
}

// Status is the data returned by the status action.
type Status struct {
	Player string  `json:"player,omitempty"`
	Paused bool    `json:"paused"`
	Speed  float64 `json:"speed,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
