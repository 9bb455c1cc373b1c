package guard

import (
	"sync"
	"time"
)

// RateLimiter is a per-server sliding-window request counter (spec
// §4.5, §8). It is deliberately a hand-rolled slice-based window rather
// than a token-bucket library: the testable property in spec §8
// requires retryAfterMs to equal the *exact* age of the oldest
// in-window timestamp, which a generic rate.Limiter does not expose.
type RateLimiter struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	timestamps []time.Time
	now       func() time.Time
}

// NewRateLimiter builds a limiter allowing up to max requests in any
// rolling window of length window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{max: max, window: window, now: time.Now}
}

// Outcome reports the decision and the HTTP-surface-facing counters
// for a single Allow call (spec §4.5: X-RateLimit-* headers).
type Outcome struct {
	Allowed      bool
	Limit        int
	Remaining    int
	ResetMs      int64
	RetryAfterMs int64
}

// Allow evicts timestamps older than now-window, then either records
// the new attempt and allows it, or denies it (spec §4.5, §8).
func (r *RateLimiter) Allow() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)

	kept := r.timestamps[:0]
	for _, ts := range r.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	r.timestamps = kept

	if len(r.timestamps) >= r.max {
		oldest := r.timestamps[0]
		age := now.Sub(oldest) // spec §4.5, §8: retryAfterMs is the oldest entry's age
		return Outcome{
			Allowed:      false,
			Limit:        r.max,
			Remaining:    0,
			RetryAfterMs: age.Milliseconds(),
			ResetMs:      age.Milliseconds(),
		}
	}

	r.timestamps = append(r.timestamps, now)
	return Outcome{
		Allowed:   true,
		Limit:     r.max,
		Remaining: r.max - len(r.timestamps),
	}
}
