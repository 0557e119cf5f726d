package pipeline

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/c360/adapterkit/errors"
)

// Truncation is the out-of-band marker attached when a buffered read or a
// decoupled write stops short of the full item set. Reason is human-readable
// and intended for a reserved response header, not for machine parsing.
type Truncation struct {
	Incomplete bool   `json:"incomplete"`
	Reason     string `json:"reason,omitempty"`
}

// none is the zero marker for complete results.
var none = Truncation{}

// terminal maps a producer's terminal error to the protocol contract:
// security denials become forbidden even after partial delivery,
// cancellation passes through untouched for silent termination, and
// anything else propagates unchanged.
func terminal(err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, errors.ErrSecurityViolation) || stderrors.Is(err, errors.ErrFeatureForbidden) {
		return errors.ErrFeatureForbidden
	}
	return err
}

// ReadBuffered drains the stream into memory up to maxItems. On reaching the
// maximum it stops draining, discards the remainder, and returns an
// incomplete marker naming the limit. The producer's resources are released
// on every exit path.
func ReadBuffered[T any](ctx context.Context, s *Stream[T], maxItems int) ([]T, Truncation, error) {
	defer s.Release()

	if maxItems <= 0 {
		return nil, none, errors.WrapInvalid(
			fmt.Errorf("buffered read requires a positive maximum, got %d", maxItems),
			"Pipeline", "ReadBuffered", "limit check")
	}

	items := make([]T, 0, min(maxItems, 64))
	for {
		select {
		case <-ctx.Done():
			return nil, none, ctx.Err()
		case item, ok := <-s.C():
			if !ok {
				return items, none, terminal(s.Err())
			}
			items = append(items, item)
			if len(items) >= maxItems {
				return items, Truncation{
					Incomplete: true,
					Reason: fmt.Sprintf(
						"result set truncated at the maximum of %d items; refine the query to retrieve the remainder",
						maxItems),
				}, nil
			}
		}
	}
}

// ReadStreamed forwards each item incrementally to emit without
// materializing the sequence. Cancellation from either side stops production:
// the caller's context covers the consumer side, and a non-nil error from
// emit aborts the stream. Resources are released exactly once on every exit
// path.
func ReadStreamed[T any](ctx context.Context, s *Stream[T], emit func(context.Context, T) error) error {
	defer s.Release()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-s.C():
			if !ok {
				return terminal(s.Err())
			}
			if err := emit(ctx, item); err != nil {
				return err
			}
		}
	}
}
