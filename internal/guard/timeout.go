package guard

import (
	"context"
	"time"
)

// WithTimeout races op against a deadline of ms, labeled for error
// reporting (spec §4.5 Timeout Guard). When the deadline expires before
// op returns, op's context is canceled (letting cancellable work stop)
// and a *TimeoutError is returned; op's result is then discarded.
func WithTimeout[T any](ctx context.Context, ms time.Duration, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	opCtx, cancel := context.WithTimeout(ctx, ms)
	defer cancel()

	type result struct {
		val T
		err error
	}
	resultCh := make(chan result, 1)

	go func() {
		v, err := op(opCtx)
		resultCh <- result{v, err}
	}()

	select {
	case r := <-resultCh:
		return r.val, r.err
	case <-opCtx.Done():
		return zero, &TimeoutError{Op: label, Ms: ms}
	}
}
