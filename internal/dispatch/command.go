// Package dispatch delivers playback commands to a media player on a single
// background worker so the frame loop never waits on the player.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Playback ranges accepted by players.
const (
	MinSpeed  = 0.25
	MaxSpeed  = 2.0
	MinVolume = 0.0
	MaxVolume = 1.0
)

var (
	// ErrInvalidArgument is returned for commands whose value is out of range.
	ErrInvalidArgument = errors.New("invalid command argument")
	// ErrQueueFull is returned by Submit when the worker is backlogged.
	ErrQueueFull = errors.New("dispatch queue full")
	// ErrSinkUnavailable is reported when no media player is attached.
	ErrSinkUnavailable = errors.New("media player not connected")
	// ErrAlreadyInState is reported when a pause or play request matches the
	// player's live state. The sink is not called.
	ErrAlreadyInState = errors.New("player already in requested state")
	// ErrClosed is returned by Submit after the worker stopped.
	ErrClosed = errors.New("dispatcher closed")
)

// Sink is a media player that accepts playback commands.
type Sink interface {
	SetSpeed(ctx context.Context, speed float64) error
	SetVolume(ctx context.Context, volume float64) error
	SetPaused(ctx context.Context, paused bool) error
	Next(ctx context.Context) error
	IsPaused(ctx context.Context) (bool, error)
}

// Action identifies the sink operation for a command.
type Action int

const (
	ActionSpeed Action = iota + 1
	ActionVolume
	ActionPause
	ActionNext
)

func (a Action) String() string {
	switch a {
	case ActionSpeed:
		return "set-speed"
	case ActionVolume:
		return "set-volume"
	case ActionPause:
		return "set-paused"
	case ActionNext:
		return "next"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Command is one approved decision waiting to be applied.
type Command struct {
	Action  Action
	Gesture string
	// Value is the speed multiplier or volume level.
	Value float64
	// Paused is the requested state for ActionPause.
	Paused  bool
	Context string
	Frame   uint64
	// DecidedAt is when the state machine fired; DecisionLatency is the time
	// spent deciding within the frame.
	DecidedAt       time.Time
	DecisionLatency time.Duration
}

// Validate rejects commands that must never reach a player.
func (c Command) Validate() error {
	switch c.Action {
	case ActionSpeed:
		if math.IsNaN(c.Value) || c.Value < MinSpeed || c.Value > MaxSpeed {
			return fmt.Errorf("%w: speed %v outside [%v, %v]", ErrInvalidArgument, c.Value, MinSpeed, MaxSpeed)
		}
	case ActionVolume:
		if math.IsNaN(c.Value) || c.Value < MinVolume || c.Value > MaxVolume {
			return fmt.Errorf("%w: volume %v outside [%v, %v]", ErrInvalidArgument, c.Value, MinVolume, MaxVolume)
		}
	case ActionPause, ActionNext:
	default:
		return fmt.Errorf("%w: unknown action %d", ErrInvalidArgument, int(c.Action))
	}
	return nil
}

// Result is the outcome of applying one command.
type Result struct {
	Command  Command
	Success  bool
	Err      error
	Attempts int
	// Latency covers all attempts including backoff.
	Latency     time.Duration
	CompletedAt time.Time
}

// Status is a short label for the result.
func (r Result) Status() string {
	if r.Success {
		return r.Command.Context
	}
	switch {
	case errors.Is(r.Err, ErrAlreadyInState):
		if r.Command.Paused {
			return "already paused"
		}
		return "already playing"
	case r.Err != nil:
		return r.Err.Error()
	default:
		return "failed"
	}
}
