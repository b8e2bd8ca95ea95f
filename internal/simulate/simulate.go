// Package simulate provides the artificial latency used by the mock
// authentication and payment flows.
package simulate

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Delay blocks for d or until ctx is done, whichever comes first.
// A non-positive d returns immediately unless ctx is already done.
func Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "simulated delay")
	}
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "simulated delay")
	}
}

// Step runs fn after a simulated delay of d bounded by timeout. A zero
// timeout means no bound beyond ctx.
func Step[T any](ctx context.Context, d, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := Delay(ctx, d); err != nil {
		var zero T
		return zero, err
	}
	return fn(ctx)
}
