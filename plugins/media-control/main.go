// Command media-control is a mudra player plugin for Linux. It drives MPRIS
// media players with playerctl and sets the playback rate with dbus-send.
//
// Set MUDRA_PLAYER to a playerctl player name to pin a player; otherwise the
// first player playerctl lists is used.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

const (
	minSpeed = 0.25
	maxSpeed = 2.0
)

type actionHandler func(params json.RawMessage) (any, error)

var actionHandlers = map[string]actionHandler{
	plugin.ActionSetSpeed:  setSpeed,
	plugin.ActionSetVolume: setVolume,
	plugin.ActionSetPaused: setPaused,
	plugin.ActionNext:      next,
	plugin.ActionStatus:    status,
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeResponse(plugin.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	data, err := handler(req.Params)
	if err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
		return
	}

	resp := plugin.Response{Success: true}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			writeResponse(plugin.Response{Error: fmt.Sprintf("failed to encode result: %v", err)})
			return
		}
		resp.Data = raw
	}
	writeResponse(resp)
}

func writeResponse(resp plugin.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}

func setSpeed(params json.RawMessage) (any, error) {
	var p plugin.SpeedParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Speed < minSpeed || p.Speed > maxSpeed {
		return nil, fmt.Errorf("speed %g outside [%g, %g]", p.Speed, minSpeed, maxSpeed)
	}

	player, err := activePlayer()
	if err != nil {
		return nil, err
	}
	_, err = run("dbus-send", "--print-reply", "--dest=org.mpris.MediaPlayer2."+player,
		"/org/mpris/MediaPlayer2", "org.freedesktop.DBus.Properties.Set",
		"string:org.mpris.MediaPlayer2.Player", "string:Rate",
		"variant:double:"+strconv.FormatFloat(p.Speed, 'f', 2, 64))
	return nil, err
}

func setVolume(params json.RawMessage) (any, error) {
	var p plugin.VolumeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if p.Volume < 0 || p.Volume > 1 {
		return nil, fmt.Errorf("volume %g outside [0, 1]", p.Volume)
	}
	_, err := playerctl("volume", strconv.FormatFloat(p.Volume, 'f', 2, 64))
	return nil, err
}

func setPaused(params json.RawMessage) (any, error) {
	var p plugin.PausedParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	verb := "play"
	if p.Paused {
		verb = "pause"
	}
	_, err := playerctl(verb)
	return nil, err
}

func next(json.RawMessage) (any, error) {
	_, err := playerctl("next")
	return nil, err
}

func status(json.RawMessage) (any, error) {
	player, err := activePlayer()
	if err != nil {
		return nil, err
	}
	state, err := playerctl("status")
	if err != nil {
		return nil, err
	}

	st := plugin.Status{Player: player, Paused: state != "Playing"}
	if v, err := playerctl("volume"); err == nil {
		st.Volume, _ = strconv.ParseFloat(v, 64)
	}
	return st, nil
}

func activePlayer() (string, error) {
	if p := os.Getenv("MUDRA_PLAYER"); p != "" {
		return p, nil
	}
	out, err := run("playerctl", "--list-all")
	if err != nil {
		return "", err
	}
	players := strings.Fields(out)
	if len(players) == 0 {
		return "", errors.New("no players found")
	}
	return players[0], nil
}

func playerctl(args ...string) (string, error) {
	player, err := activePlayer()
	if err != nil {
		return "", err
	}
	return run("playerctl", append([]string{"--player=" + player}, args...)...)
}

func run(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}
