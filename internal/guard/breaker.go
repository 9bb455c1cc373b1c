package guard

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerState mirrors spec §3's GuardState.state enum as exported
// values for metrics/audit labeling.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateHalfOpen BreakerState = "half_open"
	StateOpen     BreakerState = "open"
)

// CircuitBreaker wraps sony/gobreaker with the rolling error-rate
// semantics spec §4.5 describes: closed while the error fraction over
// the rolling window is below errorThresholdPct, open (fail fast) once
// it's reached, half-open after resetTimeoutMs allowing a single probe.
type CircuitBreaker struct {
	server string
	cb     *gobreaker.TwoStepCircuitBreaker
	onTransition func(server string, from, to BreakerState)
	resetTimeout time.Duration
}

// NewCircuitBreaker builds a breaker for one server. errorThresholdPct
// and resetTimeoutMs come from that server's configured limits (spec §3).
func NewCircuitBreaker(server string, errorThresholdPct int, resetTimeout time.Duration, onTransition func(server string, from, to BreakerState)) *CircuitBreaker {
	cbr := &CircuitBreaker{server: server, onTransition: onTransition, resetTimeout: resetTimeout}

	settings := gobreaker.Settings{
		Name:        server,
		MaxRequests: 1, // single probe call allowed in half-open (spec §4.5)
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failurePct := float64(counts.TotalFailures) / float64(counts.Requests) * 100
			return failurePct >= float64(errorThresholdPct)
		},
		OnStateChange: func(_ string, from, to gobreaker.State) {
			if cbr.onTransition != nil {
				cbr.onTransition(server, toBreakerState(from), toBreakerState(to))
			}
		},
	}

	cbr.cb = gobreaker.NewTwoStepCircuitBreaker(settings)
	return cbr
}

func toBreakerState(s gobreaker.State) BreakerState {
	switch s {
	case gobreaker.StateOpen:
		return StateOpen
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	default:
		return StateClosed
	}
}

// State returns the breaker's current state for metrics/status reporting.
func (c *CircuitBreaker) State() BreakerState {
	return toBreakerState(c.cb.State())
}

// Allow implements the closed/open/half-open admission check (spec
// §4.5). It returns a done func the caller must invoke with the
// outcome of the guarded call; done is nil when the call was rejected.
func (c *CircuitBreaker) Allow() (done func(success bool), err error) {
	proceed, cbErr := c.cb.Allow()
	if cbErr != nil {
		return nil, &CircuitOpenError{Server: c.server, ResetTimeoutMs: int(c.resetTimeout.Milliseconds())}
	}
	return func(success bool) { proceed(success) }, nil
}
