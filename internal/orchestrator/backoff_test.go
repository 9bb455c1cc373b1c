package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeBackoff_ExponentialWithCapAndJitter(t *testing.T) {
	cases := []struct {
		restartCount int
		minMs        int64
		maxMs        int64
	}{
		{1, 1000, 1999},
		{2, 2000, 2999},
		{3, 4000, 4999},
		{5, 16000, 16999},
		{10, 30000, 30999}, // capped at 30000 + jitter
	}

	for _, c := range cases {
		d := computeBackoff(c.restartCount)
		ms := d.Milliseconds()
		assert.GreaterOrEqualf(t, ms, c.minMs, "restartCount=%d", c.restartCount)
		assert.LessOrEqualf(t, ms, c.maxMs, "restartCount=%d", c.restartCount)
	}
}

func TestComputeBackoff_NeverExceedsCapPlusJitter(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := computeBackoff(20)
		assert.LessOrEqual(t, d, (maxBackoffMs+jitterMaxMs)*time.Millisecond)
	}
}
