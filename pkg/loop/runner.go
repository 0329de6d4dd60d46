package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// TickFunc renders one frame. A non-nil error stops the runner.
type TickFunc func() error

// Runner re-arms itself after every frame: it waits for the frame source,
// invokes the tick callback once, and repeats until the context is cancelled,
// Stop is called or the source is exhausted.
//
// Ticks run sequentially on the goroutine that called Run.
type Runner struct {
	source FrameSource
	tick   TickFunc
	logger *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	frames   atomic.Uint64
}

// NewRunner creates a runner. logger may be nil.
func NewRunner(source FrameSource, tick TickFunc, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		source: source,
		tick:   tick,
		logger: logger.Named("Loop"),
		stop:   make(chan struct{}),
	}
}

// Run blocks until the loop ends. It returns nil on cancellation, Stop or an
// exhausted source, and the wrapped error when a tick fails.
// A runner can only be run once.
func (r *Runner) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return errors.New("loop: runner already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-r.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	r.logger.Debug("loop started")
	for {
		if err := r.source.Next(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrSourceClosed) {
				r.logger.Debug("loop finished", zap.Uint64("frames", r.frames.Load()), zap.NamedError("reason", err))
				return nil
			}
			return fmt.Errorf("wait for frame: %w", err)
		}

		// Stop asserted between frames wins over a frame that was already due.
		if ctx.Err() != nil {
			r.logger.Debug("loop cancelled", zap.Uint64("frames", r.frames.Load()))
			return nil
		}

		if err := r.tick(); err != nil {
			r.logger.Error("tick failed", zap.Uint64("frame", r.frames.Load()+1), zap.Error(err))
			return fmt.Errorf("frame %d: %w", r.frames.Load()+1, err)
		}
		r.frames.Add(1)
	}
}

// Stop asks the loop to end before the next frame. Safe to call more than once
// and from any goroutine.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Frames returns the number of completed ticks.
func (r *Runner) Frames() uint64 {
	return r.frames.Load()
}
