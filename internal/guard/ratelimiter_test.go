package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsUpToMaxThenDenies(t *testing.T) {
	base := time.Now()
	clock := base
	rl := NewRateLimiter(2, time.Second)
	rl.now = func() time.Time { return clock }

	o1 := rl.Allow()
	assert.True(t, o1.Allowed)
	assert.Equal(t, 1, o1.Remaining)

	clock = clock.Add(100 * time.Millisecond)
	o2 := rl.Allow()
	assert.True(t, o2.Allowed)
	assert.Equal(t, 0, o2.Remaining)

	clock = clock.Add(100 * time.Millisecond)
	o3 := rl.Allow()
	assert.False(t, o3.Allowed)
	// third request denied 200ms after the first (the oldest in-window) was recorded.
	assert.Equal(t, int64(200), o3.RetryAfterMs)
}

func TestRateLimiter_WindowEviction(t *testing.T) {
	base := time.Now()
	clock := base
	rl := NewRateLimiter(1, 100*time.Millisecond)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow().Allowed)
	clock = clock.Add(50 * time.Millisecond)
	assert.False(t, rl.Allow().Allowed)

	clock = clock.Add(60 * time.Millisecond) // now 110ms after first: window has rolled
	assert.True(t, rl.Allow().Allowed)
}
