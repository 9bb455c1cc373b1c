// Package guard implements the four independent per-server policy
// objects — Rate Limiter, Circuit Breaker, Timeout Guard, Scope
// Authorizer — and their fixed dispatch ordering (spec §4.5).
package guard

import (
	"fmt"
	"time"
)

// RateLimitedError is returned when a server's request budget is
// exhausted (spec §7: RateLimited).
type RateLimitedError struct {
	Server       string
	RetryAfterMs int64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited for server %q, retry after %dms", e.Server, e.RetryAfterMs)
}

// CircuitOpenError is returned while a server's breaker is open (spec
// §7: CircuitOpen).
type CircuitOpenError struct {
	Server         string
	ResetTimeoutMs int
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for server %q", e.Server)
}

// TimeoutError is returned when an awaited operation exceeds its
// deadline (spec §7: Timeout).
type TimeoutError struct {
	Op string
	Ms time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout in %q after %s", e.Op, e.Ms)
}

// ScopeViolationError is returned when a caller's declared scope is not
// among the server's allowed scopes (spec §7: ScopeViolation).
type ScopeViolationError struct {
	Server         string
	AttemptedScope string
	Allowed        []string
}

func (e *ScopeViolationError) Error() string {
	return fmt.Sprintf("scope %q not allowed for server %q", e.AttemptedScope, e.Server)
}
