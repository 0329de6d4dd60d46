// Package loop drives a per-frame callback from an injected frame source until
// the caller cancels it.
package loop

import (
	"context"
	"errors"
	"time"
)

// ErrSourceClosed is returned by a frame source that will not produce more frames.
var ErrSourceClosed = errors.New("frame source closed")

// DefaultFPS is the frame rate used when none is configured.
const DefaultFPS = 60

// FrameSource blocks until the next display frame is due.
//
// Next returns nil when a frame should be rendered, ctx.Err() when ctx is
// done, or ErrSourceClosed when the source is exhausted.
type FrameSource interface {
	Next(ctx context.Context) error
}

// TickerSource produces frames at a fixed rate.
// Frames missed while the consumer was busy are dropped, not queued.
type TickerSource struct {
	ticker   *time.Ticker
	interval time.Duration
}

// NewTickerSource creates a source ticking fps times per second.
// Non-positive fps falls back to DefaultFPS.
func NewTickerSource(fps int) *TickerSource {
	if fps <= 0 {
		fps = DefaultFPS
	}
	// 帧率超过 1e9 时间隔截断为 0，NewTicker 会 panic
	interval := max(time.Second/time.Duration(fps), time.Nanosecond)
	return &TickerSource{
		ticker:   time.NewTicker(interval),
		interval: interval,
	}
}

// Interval returns the time between frames.
func (s *TickerSource) Interval() time.Duration {
	return s.interval
}

func (s *TickerSource) Next(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ticker.C:
		return nil
	}
}

// Stop releases the ticker.
func (s *TickerSource) Stop() {
	s.ticker.Stop()
}

// ManualSource hands out frames on demand. Step blocks until a consumer
// takes the frame.
type ManualSource struct {
	frames chan struct{}
	done   chan struct{}
}

// NewManualSource creates a source that yields a frame per Step call.
func NewManualSource() *ManualSource {
	return &ManualSource{
		frames: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Step offers one frame and waits until it is taken or ctx ends.
func (s *ManualSource) Step(ctx context.Context) error {
	select {
	case s.frames <- struct{}{}:
		return nil
	case <-s.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close ends the source; pending and future Next calls return ErrSourceClosed.
func (s *ManualSource) Close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *ManualSource) Next(ctx context.Context) error {
	select {
	case <-s.frames:
		return nil
	case <-s.done:
		return ErrSourceClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CountSource yields a fixed number of frames without waiting, then closes.
// It drives offline rendering as fast as the consumer allows.
type CountSource struct {
	remaining int
}

// NewCountSource creates a source that yields n frames.
func NewCountSource(n int) *CountSource {
	return &CountSource{remaining: n}
}

func (s *CountSource) Next(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.remaining <= 0 {
		return ErrSourceClosed
	}
	s.remaining--
	return nil
}
