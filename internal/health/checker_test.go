package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChecker_OverallHealth_AllPass(t *testing.T) {
	c := NewChecker(10*time.Millisecond, nil, nil, nil)
	c.Register(Target{Name: "a", IsAlive: func() bool { return true }})
	c.Register(Target{Name: "b", IsAlive: func() bool { return true }})

	c.probeAll(context.Background())

	assert.True(t, c.OverallHealth())
	r := c.ReadinessStatus()
	assert.True(t, r.Ready)
	assert.Equal(t, StatusOK, r.Status)
}

func TestChecker_ReadinessStatus_Degraded(t *testing.T) {
	c := NewChecker(10*time.Millisecond, nil, nil, nil)
	c.Register(Target{Name: "a", IsAlive: func() bool { return true }})
	c.Register(Target{Name: "b", Command: "false-command-that-does-not-exist-xyz", ProbeTimeoutMs: 50, IsAlive: func() bool { return true }})

	c.probeAll(context.Background())

	r := c.ReadinessStatus()
	assert.False(t, r.Ready)
	assert.Equal(t, StatusDegraded, r.Status)
}

func TestChecker_SkippedServerExcluded(t *testing.T) {
	c := NewChecker(10*time.Millisecond, nil, nil, nil)
	c.Register(Target{Name: "a", IsAlive: func() bool { return true }})
	c.Register(Target{Name: "skipped", IsSkipped: func() bool { return true }, IsAlive: func() bool { return true }})

	c.probeAll(context.Background())

	_, ok := c.Snapshot("skipped")
	assert.False(t, ok, "skipped servers are never probed")

	// A skipped server must not drag down overall health or readiness.
	assert.True(t, c.OverallHealth())
	r := c.ReadinessStatus()
	assert.True(t, r.Ready)
	assert.Equal(t, StatusOK, r.Status)
}

func TestChecker_StartStop(t *testing.T) {
	c := NewChecker(5*time.Millisecond, nil, nil, nil)
	probed := make(chan struct{}, 1)
	c.Register(Target{Name: "a", IsAlive: func() bool {
		select {
		case probed <- struct{}{}:
		default:
		}
		return true
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.Start(ctx)

	select {
	case <-probed:
	case <-time.After(time.Second):
		t.Fatal("expected at least one probe round")
	}

	c.Stop()
}
