package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBundle(server string) *Bundle {
	scope := NewScopeAuthorizer()
	scope.Register(server, []string{"read"})
	return &Bundle{
		Server:  server,
		Scope:   scope,
		Limiter: NewRateLimiter(100, time.Second),
		Breaker: NewCircuitBreaker(server, 50, 50*time.Millisecond, nil),
		Timeout: time.Second,
	}
}

func TestDispatch_ScopeViolationShortCircuits(t *testing.T) {
	b := newTestBundle("svc")
	called := false

	_, err := Dispatch(context.Background(), b, "write", func(ctx context.Context) (int, error) {
		called = true
		return 1, nil
	})

	var scopeErr *ScopeViolationError
	require.ErrorAs(t, err, &scopeErr)
	assert.False(t, called, "op must not run when scope check fails")
}

func TestDispatch_RateLimitShortCircuits(t *testing.T) {
	b := newTestBundle("svc")
	b.Limiter = NewRateLimiter(1, time.Second)

	_, err := Dispatch(context.Background(), b, "read", func(ctx context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	called := false
	_, err = Dispatch(context.Background(), b, "read", func(ctx context.Context) (int, error) {
		called = true
		return 1, nil
	})
	var rlErr *RateLimitedError
	require.ErrorAs(t, err, &rlErr)
	assert.False(t, called)
}

func TestDispatch_TimeoutPropagates(t *testing.T) {
	b := newTestBundle("svc")
	b.Timeout = 10 * time.Millisecond

	_, err := Dispatch(context.Background(), b, "read", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})

	var toErr *TimeoutError
	require.ErrorAs(t, err, &toErr)
}

func TestDispatch_SuccessPassesThrough(t *testing.T) {
	b := newTestBundle("svc")
	v, err := Dispatch(context.Background(), b, "read", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	var transitions []BreakerState
	cb := NewCircuitBreaker("svc", 50, 50*time.Millisecond, func(_ string, _, to BreakerState) {
		transitions = append(transitions, to)
	})

	succeed := func() {
		done, err := cb.Allow()
		require.NoError(t, err)
		done(true)
	}
	fail := func() {
		done, err := cb.Allow()
		require.NoError(t, err)
		done(false)
	}

	// 5 successes then 5 failures: the failure fraction stays below 50%
	// through the ninth call (4/9) and reaches it on the tenth (5/10).
	for i := 0; i < 5; i++ {
		succeed()
	}
	for i := 0; i < 4; i++ {
		fail()
	}
	assert.Equal(t, StateClosed, cb.State())
	fail()

	assert.Equal(t, StateOpen, cb.State())

	_, err := cb.Allow()
	var openErr *CircuitOpenError
	require.ErrorAs(t, err, &openErr)

	time.Sleep(60 * time.Millisecond)
	done, err := cb.Allow()
	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State())
	done(true)
	assert.Equal(t, StateClosed, cb.State())

	require.NotEmpty(t, transitions)
}

func TestWithTimeout_CancelsOnExpiry(t *testing.T) {
	_, err := WithTimeout(context.Background(), 5*time.Millisecond, "op", func(ctx context.Context) (int, error) {
		select {
		case <-time.After(time.Second):
			return 1, nil
		case <-ctx.Done():
			return 0, errors.New("cancelled")
		}
	})
	var toErr *TimeoutError
	require.ErrorAs(t, err, &toErr)
}
