package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// persistOp is one durable-store write, replayable for retry.
type persistOp struct {
	label string
	fn    func(ctx context.Context) error
}

// Persister applies write-behind durable-store writes off the session's hot
// path. A single consumer goroutine keeps writes ordered; each op is retried
// with exponential backoff and a failure is logged, never surfaced to the
// participant, because in-memory state stays authoritative for the session.
type Persister struct {
	ops        chan persistOp
	logger     zerolog.Logger
	maxRetries uint64
	baseDelay  time.Duration
	opTimeout  time.Duration

	mu       sync.Mutex
	overflow []persistOp
}

// PersisterOptions tunes queue depth and retry behavior. Zero values fall
// back to defaults.
type PersisterOptions struct {
	QueueSize  int
	MaxRetries int
	BaseDelay  time.Duration
	OpTimeout  time.Duration
}

// NewPersister builds a persister with the given options.
func NewPersister(logger zerolog.Logger, opts PersisterOptions) *Persister {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 200 * time.Millisecond
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Second
	}
	return &Persister{
		ops:        make(chan persistOp, opts.QueueSize),
		logger:     logger.With().Str("component", "persister").Logger(),
		maxRetries: uint64(opts.MaxRetries),
		baseDelay:  opts.BaseDelay,
		opTimeout:  opts.OpTimeout,
	}
}

// Enqueue queues a write and returns without touching the store. If the
// channel is full the op spills to an ordered overflow list the consumer
// empties back into the channel, so a slow store backs writes up without
// reordering them or stalling the caller.
func (p *Persister) Enqueue(label string, fn func(ctx context.Context) error) {
	op := persistOp{label: label, fn: fn}

	p.mu.Lock()
	if len(p.overflow) > 0 {
		p.overflow = append(p.overflow, op)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	select {
	case p.ops <- op:
	default:
		p.logger.Warn().Str("op", label).Msg("persist queue full, spilling to overflow")
		p.mu.Lock()
		p.overflow = append(p.overflow, op)
		p.mu.Unlock()
	}
}

// Run consumes the queue until ctx is cancelled, then drains whatever is
// already queued so an orderly shutdown does not lose the final flush.
func (p *Persister) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return ctx.Err()
		case op := <-p.ops:
			p.apply(op)
			p.refill()
		}
	}
}

// refill moves spilled ops back into the channel, oldest first, as space
// frees up.
func (p *Persister) refill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.overflow) > 0 {
		select {
		case p.ops <- p.overflow[0]:
			p.overflow = p.overflow[1:]
		default:
			return
		}
	}
}

func (p *Persister) drain() {
	for {
		select {
		case op := <-p.ops:
			p.apply(op)
		default:
			p.mu.Lock()
			if len(p.overflow) == 0 {
				p.mu.Unlock()
				return
			}
			op := p.overflow[0]
			p.overflow = p.overflow[1:]
			p.mu.Unlock()
			p.apply(op)
		}
	}
}

// apply runs one op with backoff. Uses a fresh context so a cancelled Run
// context cannot abort the shutdown drain mid-write.
func (p *Persister) apply(op persistOp) {
	backoff := retry.WithMaxRetries(p.maxRetries, retry.NewExponential(p.baseDelay))

	ctx, cancel := context.WithTimeout(context.Background(), p.opTimeout)
	defer cancel()

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op.fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		p.logger.Error().Err(err).Str("op", op.label).Msg("durable write failed after retries")
		return
	}
	p.logger.Debug().Str("op", op.label).Msg("durable write applied")
}
