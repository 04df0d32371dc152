package resilience

import (
	"context"
	"fmt"
	"time"
)

// TimeoutValue runs fn with a derived context that is cancelled after the
// given timeout. It returns as soon as the deadline passes even if fn has not
// yet observed the cancellation; the error then wraps
// context.DeadlineExceeded.
func TimeoutValue[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome{v, err}
	}()

	var zero T
	select {
	case out := <-done:
		return out.val, out.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}
