package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
)

// Config controls the worker.
type Config struct {
	QueueSize int `yaml:"queue_size"`
	// CallTimeout bounds each sink call.
	CallTimeout time.Duration `yaml:"call_timeout"`
	// MaxAttempts is the number of tries per command while the sink is
	// healthy. A degraded sink gets a single try until it succeeds again.
	MaxAttempts int           `yaml:"max_attempts"`
	Backoff     time.Duration `yaml:"backoff"`
	// StatusInterval is how often the worker refreshes the player's paused
	// state while idle. Zero disables polling.
	StatusInterval time.Duration `yaml:"status_interval"`
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:      32,
		CallTimeout:    2 * time.Second,
		MaxAttempts:    3,
		Backoff:        500 * time.Millisecond,
		StatusInterval: time.Second,
	}
}

const (
	stateUnknown int32 = iota
	statePlaying
	statePaused
)

// Dispatcher applies commands to a Sink in submission order on one worker
// goroutine. Results are reported to the observer from that goroutine.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	observe func(Result)
	log     zerolog.Logger

	queue    chan Command
	stopped  chan struct{}
	stopOnce sync.Once

	degraded atomic.Bool
	player   atomic.Int32
	// queued and done count accepted and observed commands.
	queued atomic.Uint64
	done   atomic.Uint64
}

// New creates a Dispatcher. A nil sink makes every command fail with
// ErrSinkUnavailable. observe may be nil.
func New(sink Sink, cfg Config, observe func(Result)) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultConfig().CallTimeout
	}
	if observe == nil {
		observe = func(Result) {}
	}
	return &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		observe: observe,
		log:     logging.For("dispatch"),
		queue:   make(chan Command, cfg.QueueSize),
		stopped: make(chan struct{}),
	}
}

// Submit validates cmd and queues it without blocking.
func (d *Dispatcher) Submit(cmd Command) error {
	if err := cmd.Validate(); err != nil {
		d.log.Error().Err(err).Str("gesture", cmd.Gesture).Msg("rejected command")
		return err
	}
	select {
	case <-d.stopped:
		return ErrClosed
	default:
	}
	d.queued.Add(1)
	select {
	case d.queue <- cmd:
		return nil
	default:
		d.queued.Add(^uint64(0))
		return ErrQueueFull
	}
}

// Run processes commands until ctx is done. Commands still queued at that
// point are dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer d.stopOnce.Do(func() { close(d.stopped) })

	d.refresh(ctx)

	var tick <-chan time.Time
	if d.cfg.StatusInterval > 0 {
		ticker := time.NewTicker(d.cfg.StatusInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			if n := len(d.queue); n > 0 {
				d.log.Debug().Int("dropped", n).Msg("dispatcher stopping with queued commands")
			}
			return nil
		case cmd := <-d.queue:
			d.observe(d.execute(ctx, cmd))
			d.done.Add(1)
		case <-tick:
			d.refresh(ctx)
		}
	}
}

// Start runs the worker in a new goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	go d.Run(ctx)
}

// Degraded reports whether a command exhausted its attempts with no
// successful sink call since.
func (d *Dispatcher) Degraded() bool { return d.degraded.Load() }

// PlayerState returns the last known paused state of the player.
func (d *Dispatcher) PlayerState() gesture.PlayerState {
	switch d.player.Load() {
	case statePaused:
		return gesture.PlayerState{Known: true, Paused: true}
	case statePlaying:
		return gesture.PlayerState{Known: true}
	default:
		return gesture.PlayerState{}
	}
}

// Pending returns the number of queued commands.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Idle reports whether every accepted command has been applied and observed.
func (d *Dispatcher) Idle() bool { return d.done.Load() == d.queued.Load() }

// Wait blocks until the dispatcher is idle or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for !d.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command) (res Result) {
	start := time.Now()
	res.Command = cmd
	defer func() {
		res.Latency = time.Since(start)
		res.CompletedAt = time.Now()
	}()

	if d.sink == nil {
		res.Err = ErrSinkUnavailable
		return res
	}

	attempts := d.cfg.MaxAttempts
	if d.degraded.Load() {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		res.Attempts = i
		err = d.call(ctx, cmd)
		if err == nil || errors.Is(err, ErrAlreadyInState) || ctx.Err() != nil {
			break
		}
		if i < attempts {
			d.log.Warn().Err(err).Str("action", cmd.Action.String()).Int("attempt", i).Msg("command failed, retrying")
			select {
			case <-ctx.Done():
			case <-time.After(d.cfg.Backoff):
			}
		}
	}

	res.Err = err
	res.Success = err == nil
	switch {
	case err == nil:
		d.healthy()
	case errors.Is(err, ErrAlreadyInState):
	default:
		if !d.degraded.Swap(true) {
			d.log.Error().Err(err).Str("action", cmd.Action.String()).Msg("media player degraded")
		}
	}
	return res
}

func (d *Dispatcher) call(ctx context.Context, cmd Command) error {
	cctx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()

	switch cmd.Action {
	case ActionSpeed:
		return d.sink.SetSpeed(cctx, cmd.Value)
	case ActionVolume:
		return d.sink.SetVolume(cctx, cmd.Value)
	case ActionNext:
		if err := d.sink.Next(cctx); err != nil {
			return err
		}
		d.player.Store(stateUnknown)
		d.refresh(ctx)
		return nil
	case ActionPause:
		paused, err := d.sink.IsPaused(cctx)
		if err != nil {
			return err
		}
		d.healthy()
		if paused == cmd.Paused {
			d.setPlayer(paused)
			return ErrAlreadyInState
		}
		if err := d.sink.SetPaused(cctx, cmd.Paused); err != nil {
			return err
		}
		d.setPlayer(cmd.Paused)
		return nil
	default:
		return ErrInvalidArgument
	}
}

func (d *Dispatcher) refresh(ctx context.Context) {
	if d.sink == nil {
		d.player.Store(stateUnknown)
		return
	}
	cctx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()

	paused, err := d.sink.IsPaused(cctx)
	if err != nil {
		if d.player.Swap(stateUnknown) != stateUnknown {
			d.log.Debug().Err(err).Msg("player state unavailable")
		}
		return
	}
	d.healthy()
	d.setPlayer(paused)
}

// healthy clears the degraded flag after any successful sink call.
func (d *Dispatcher) healthy() {
	if d.degraded.Swap(false) {
		d.log.Info().Msg("media player recovered")
	}
}

func (d *Dispatcher) setPlayer(paused bool) {
	if paused {
		d.player.Store(statePaused)
	} else {
		d.player.Store(statePlaying)
	}
}
