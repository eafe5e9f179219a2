package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ayusman/mudra/internal/logging"
)

// Flusher persists a batch of outcomes.
type Flusher interface {
	Flush(ctx context.Context, batch []Outcome) error
}

// FlusherFunc adapts a function to a Flusher.
type FlusherFunc func(ctx context.Context, batch []Outcome) error

func (f FlusherFunc) Flush(ctx context.Context, batch []Outcome) error { return f(ctx, batch) }

// BufferConfig controls when buffered outcomes are written.
type BufferConfig struct {
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxEntries    int           `yaml:"max_entries"`
}

// retainFactor bounds how many outcomes a failing Flusher can leave pending,
// as a multiple of MaxEntries.
const retainFactor = 10

// DefaultBufferConfig flushes every 5 seconds or at 100 entries.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{FlushInterval: 5 * time.Second, MaxEntries: 100}
}

// Buffer is a Sink that batches outcomes for a Flusher. Writes never touch
// the Flusher; Run does the flushing.
type Buffer struct {
	cfg     BufferConfig
	flusher Flusher
	log     zerolog.Logger

	mu      sync.Mutex
	pending []Outcome
	dropped uint64
	kick    chan struct{}
}

// NewBuffer creates a Buffer.
func NewBuffer(cfg BufferConfig, flusher Flusher) *Buffer {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultBufferConfig().MaxEntries
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultBufferConfig().FlushInterval
	}
	return &Buffer{
		cfg:     cfg,
		flusher: flusher,
		log:     logging.For("telemetry"),
		kick:    make(chan struct{}, 1),
	}
}

// Write queues an outcome. Reaching MaxEntries wakes Run once; a backlog
// left by failed flushes waits for the next interval.
func (b *Buffer) Write(o Outcome) {
	b.mu.Lock()
	b.pending = append(b.pending, o)
	full := len(b.pending) == b.cfg.MaxEntries
	b.trimLocked()
	b.mu.Unlock()

	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// trimLocked drops the oldest outcomes beyond the retention limit.
func (b *Buffer) trimLocked() {
	limit := b.cfg.MaxEntries * retainFactor
	over := len(b.pending) - limit
	if over <= 0 {
		return
	}
	b.pending = append(b.pending[:0:0], b.pending[over:]...)
	before := b.dropped
	b.dropped += uint64(over)
	// One warning per MaxEntries dropped.
	step := uint64(b.cfg.MaxEntries)
	if before != 0 && before/step == b.dropped/step {
		return
	}
	b.log.Warn().Int("dropped", over).Uint64("totalDropped", b.dropped).Msg("outcome backlog full, dropping oldest")
}

// Dropped returns how many outcomes were discarded because the backlog was
// full.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Len returns the number of unflushed outcomes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Run flushes on the interval and whenever the buffer fills, until ctx is
// done. Remaining outcomes are flushed before returning.
func (b *Buffer) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return b.Flush(final)
		case <-ticker.C:
			b.flushLogged(ctx)
		case <-b.kick:
			b.flushLogged(ctx)
		}
	}
}

func (b *Buffer) flushLogged(ctx context.Context) {
	if err := b.Flush(ctx); err != nil {
		b.log.Error().Err(err).Msg("failed to flush outcomes")
	}
}

// Flush writes all pending outcomes. On error the batch is kept for the
// next attempt, up to the retention limit.
func (b *Buffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	if err := b.flusher.Flush(ctx, batch); err != nil {
		b.mu.Lock()
		b.pending = append(batch, b.pending...)
		b.trimLocked()
		b.mu.Unlock()
		return err
	}
	b.log.Debug().Int("count", len(batch)).Msg("flushed outcomes")
	return nil
}
