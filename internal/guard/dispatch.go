package guard

import (
	"context"
	"time"
)

// Bundle groups the four guards attached to one server. Ordering when
// dispatching a call is normative (spec §4.5, §9): ScopeAuth -> RateLimit
// -> CircuitBreaker -> Timeout -> execute. A rejection short-circuits
// the remainder and reports the first-failing guard.
type Bundle struct {
	Server  string
	Scope   *ScopeAuthorizer
	Limiter *RateLimiter
	Breaker *CircuitBreaker
	Timeout time.Duration
}

// Dispatch runs op through the full guard chain for requiredScope. It
// returns the first guard error encountered, or op's own result/error.
func Dispatch[T any](ctx context.Context, b *Bundle, requiredScope string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := b.Scope.Validate(b.Server, requiredScope); err != nil {
		return zero, err
	}

	outcome := b.Limiter.Allow()
	if !outcome.Allowed {
		return zero, &RateLimitedError{Server: b.Server, RetryAfterMs: outcome.RetryAfterMs}
	}

	done, err := b.Breaker.Allow()
	if err != nil {
		return zero, err
	}

	val, opErr := WithTimeout(ctx, b.Timeout, b.Server, op)

	// A breaker half-open/closed probe treats a Timeout the same as any
	// other failure (spec §4.5: "failure returns to open").
	done(opErr == nil)

	return val, opErr
}
