package health

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mcporch/orchestrator/internal/audit"
	"github.com/mcporch/orchestrator/internal/observability"
)

// Target describes one server's probe invocation and liveness source.
// Checker never itself decides lifecycle transitions; it only asks
// IsAlive and, when configured, runs the probe command (spec §4.6:
// "Probes must not themselves trigger restarts; they only inform
// health").
type Target struct {
	Name           string
	Command        string
	ProbeArgs      []string
	WorkingDir     string
	Env            []string
	ProbeTimeoutMs int
	IsAlive        func() bool
	IsSkipped      func() bool
}

// Checker runs one probe per enabled, running server on a fixed
// interval and aggregates readiness (spec §4.6).
type Checker struct {
	logger  *zap.Logger
	sink    *audit.Sink
	metrics *observability.Metrics
	interval time.Duration

	mu        sync.RWMutex
	targets   map[string]Target
	snapshots map[string]Snapshot

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewChecker builds a Checker that probes every registered target
// every interval.
func NewChecker(interval time.Duration, sink *audit.Sink, metrics *observability.Metrics, logger *zap.Logger) *Checker {
	return &Checker{
		logger:    logger,
		sink:      sink,
		metrics:   metrics,
		interval:  interval,
		targets:   make(map[string]Target),
		snapshots: make(map[string]Snapshot),
		stopCh:    make(chan struct{}),
	}
}

// Register adds or replaces the probe target for one server.
func (c *Checker) Register(t Target) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.targets[t.Name] = t
}

// Start begins the periodic probe loop; call Stop to end it.
func (c *Checker) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.probeAll(ctx)
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the probe loop and waits for the in-flight round to finish.
func (c *Checker) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

func (c *Checker) probeAll(ctx context.Context) {
	c.mu.RLock()
	targets := make([]Target, 0, len(c.targets))
	for _, t := range c.targets {
		targets = append(targets, t)
	}
	c.mu.RUnlock()

	var wg sync.WaitGroup
	for _, t := range targets {
		t := t
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.probeOne(ctx, t)
		}()
	}
	wg.Wait()
}

func (c *Checker) probeOne(ctx context.Context, t Target) {
	if t.IsSkipped != nil && t.IsSkipped() {
		return
	}
	if t.IsAlive == nil || !t.IsAlive() {
		return
	}

	start := time.Now()
	ok := c.runProbe(ctx, t)
	latency := time.Since(start)

	c.mu.Lock()
	snap := c.snapshots[t.Name]
	snap.LastProbeAt = start
	snap.LastProbeOK = ok
	snap.LastProbeLatencyMs = latency.Milliseconds()
	if ok {
		snap.ConsecutiveFailures = 0
	} else {
		snap.ConsecutiveFailures++
	}
	c.snapshots[t.Name] = snap
	c.mu.Unlock()

	outcome := "probe_fail"
	event := audit.EventProbeFail
	if ok {
		outcome = "probe_ok"
		event = audit.EventProbeOK
	}

	if c.metrics != nil {
		c.metrics.ProbeTotal.WithLabelValues(t.Name, outcome).Inc()
		c.metrics.ProbeLatency.WithLabelValues(t.Name).Observe(latency.Seconds())
	}
	if c.sink != nil {
		c.sink.Emit(t.Name, event, map[string]interface{}{"latencyMs": latency.Milliseconds()})
	}
}

// runProbe performs the liveness/readiness stdio exchange: it spawns
// the configured probe invocation and considers success iff the probe
// exits zero within the deadline (spec §4.6 step 2).
func (c *Checker) runProbe(ctx context.Context, t Target) bool {
	if t.Command == "" {
		return true // process-alive check only; no stdio exchange configured
	}

	timeout := time.Duration(t.ProbeTimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, t.Command, t.ProbeArgs...)
	cmd.Dir = t.WorkingDir
	cmd.Env = t.Env

	err := cmd.Run()
	if err != nil {
		if c.logger != nil {
			c.logger.Debug("health probe failed", zap.String("server", t.Name), zap.Error(err))
		}
		return false
	}
	return true
}

// Snapshot returns the most recent probe result for one server.
func (c *Checker) Snapshot(server string) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.snapshots[server]
	return s, ok
}

// Snapshots returns a copy of every tracked server's snapshot.
func (c *Checker) Snapshots() map[string]Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Snapshot, len(c.snapshots))
	for k, v := range c.snapshots {
		out[k] = v
	}
	return out
}
