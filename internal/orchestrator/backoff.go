package orchestrator

import (
	"math/rand"
	"time"
)

const (
	baseBackoffMs = 1000
	maxBackoffMs  = 30_000
	jitterMaxMs   = 1000
)

// computeBackoff returns the delay before restart attempt number
// restartCount (the count *after* incrementing for this attempt):
// min(1000*2^(restartCount-1), 30000) ms, plus a uniform [0,1000)ms
// jitter, so the first restart waits 1s, then 2s, 4s, 8s, 16s.
//
// This is hand-rolled rather than built on cenkalti/backoff/v5 (listed
// in go.mod but not imported by any package, see DESIGN.md): that library's
// ExponentialBackOff applies a randomization *factor* to the computed
// interval, which cannot reproduce the spec's flat additive jitter
// term — a difference the spec's testable property in §8 depends on.
func computeBackoff(restartCount int) time.Duration {
	if restartCount < 0 {
		restartCount = 0
	}

	exp := baseBackoffMs
	for i := 1; i < restartCount && exp < maxBackoffMs; i++ {
		exp *= 2
	}
	if exp > maxBackoffMs {
		exp = maxBackoffMs
	}

	jitter := rand.Intn(jitterMaxMs)
	return time.Duration(exp+jitter) * time.Millisecond
}
