package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
)

// Stream is a one-way, cancellable, producer-ordered sequence of items.
// The producer sends with Send and finishes with Close; consumers range over
// C and inspect Err after the channel closes. Resource cleanup registered
// with OnRelease runs exactly once regardless of how the stream ends.
type Stream[T any] struct {
	ch chan T

	// err is written before the channel close and read only after it,
	// so the close provides the necessary ordering.
	err error

	closeOnce   sync.Once
	releaseOnce sync.Once
	release     atomic.Pointer[func()]
	released    atomic.Bool
}

// NewStream creates a stream with the given channel buffer size.
func NewStream[T any](buffer int) *Stream[T] {
	if buffer < 0 {
		buffer = 0
	}
	return &Stream[T]{ch: make(chan T, buffer)}
}

// C returns the receive side of the stream.
func (s *Stream[T]) C() <-chan T {
	return s.ch
}

// Send delivers one item to the stream, suspending until the consumer has
// capacity or ctx is cancelled. It returns ctx.Err() on cancellation.
func (s *Stream[T]) Send(ctx context.Context, item T) error {
	select {
	case s.ch <- item:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend delivers one item without suspending. It returns false when the
// channel has no free capacity.
func (s *Stream[T]) TrySend(item T) bool {
	select {
	case s.ch <- item:
		return true
	default:
		return false
	}
}

// Close finishes the stream, recording err as the terminal condition.
// A nil err means normal completion. Close is idempotent; only the first
// call's error is kept.
func (s *Stream[T]) Close(err error) {
	s.closeOnce.Do(func() {
		s.err = err
		close(s.ch)
	})
}

// Err returns the terminal error recorded by Close. It is only meaningful
// after C has been closed.
func (s *Stream[T]) Err() error {
	return s.err
}

// OnRelease registers the producer's resource cleanup. At most one cleanup
// function is tracked; registering again replaces an unreleased one.
func (s *Stream[T]) OnRelease(fn func()) {
	s.release.Store(&fn)
}

// Release runs the registered cleanup exactly once. Safe to call from any
// exit path and from multiple goroutines.
func (s *Stream[T]) Release() {
	s.releaseOnce.Do(func() {
		s.released.Store(true)
		if fn := s.release.Load(); fn != nil && *fn != nil {
			(*fn)()
		}
	})
}

// Released reports whether Release has run. Used by callers that audit
// cleanup behavior.
func (s *Stream[T]) Released() bool {
	return s.released.Load()
}

// Produce starts fn on its own goroutine as the stream's producer. The
// stream is closed with fn's return value when it finishes; cancellation is
// recorded as the context error so consumers can distinguish it.
func Produce[T any](ctx context.Context, buffer int, fn func(ctx context.Context, s *Stream[T]) error) *Stream[T] {
	s := NewStream[T](buffer)
	go func() {
		s.Close(fn(ctx, s))
	}()
	return s
}

// FromSlice returns an already-populated stream over items. Useful for
// adapters whose results are naturally in memory and for tests.
func FromSlice[T any](items []T) *Stream[T] {
	s := NewStream[T](len(items))
	for _, item := range items {
		s.ch <- item
	}
	s.Close(nil)
	return s
}
