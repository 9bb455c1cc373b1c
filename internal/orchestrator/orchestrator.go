package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mcporch/orchestrator/internal/audit"
	"github.com/mcporch/orchestrator/internal/config"
	"github.com/mcporch/orchestrator/internal/envcheck"
	"github.com/mcporch/orchestrator/internal/guard"
	"github.com/mcporch/orchestrator/internal/health"
	"github.com/mcporch/orchestrator/internal/observability"
	"github.com/mcporch/orchestrator/internal/registry"
)

// Orchestrator is the core that owns every server's lifecycle, guard
// bundle, and health target (spec §4.9).
type Orchestrator struct {
	registry *registry.Registry
	logger   *zap.Logger
	sink     *audit.Sink
	metrics  *observability.Metrics
	checker  *health.Checker

	mu          sync.RWMutex
	processes   map[string]*ServerProcess
	supervisors map[string]*supervisor
	bundles     map[string]*guard.Bundle

	started bool
}

// New builds an Orchestrator from a loaded registry. Call Start to
// begin supervising enabled servers.
func New(reg *registry.Registry, logger *zap.Logger, sink *audit.Sink, metrics *observability.Metrics, checker *health.Checker) *Orchestrator {
	return &Orchestrator{
		registry:    reg,
		logger:      logger,
		sink:        sink,
		metrics:     metrics,
		checker:     checker,
		processes:   make(map[string]*ServerProcess),
		supervisors: make(map[string]*supervisor),
		bundles:     make(map[string]*guard.Bundle),
	}
}

// Start validates each enabled server's environment, marks the invalid
// ones permanently skipped, and spawns a supervisor goroutine for every
// remaining one (spec §4.2, §4.9). A second call returns an error.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: already started")
	}
	o.started = true
	o.mu.Unlock()

	for _, sc := range o.registry.GetEnabledServers() {
		proc := newServerProcess(sc)

		scopeAuth := guard.NewScopeAuthorizer()
		scopeAuth.Register(sc.Name, sc.Scopes)

		breaker := guard.NewCircuitBreaker(sc.Name, sc.Limits.ErrorThresholdPct,
			time.Duration(sc.Limits.ResetTimeoutMs)*time.Millisecond,
			o.onBreakerTransition)

		bundle := &guard.Bundle{
			Server:  sc.Name,
			Scope:   scopeAuth,
			Limiter: guard.NewRateLimiter(sc.Limits.RatePerWindow, time.Duration(sc.Limits.RateWindowMs)*time.Millisecond),
			Breaker: breaker,
			Timeout: time.Duration(sc.Limits.TimeoutMs) * time.Millisecond,
		}

		o.mu.Lock()
		o.processes[sc.Name] = proc
		o.bundles[sc.Name] = bundle
		o.mu.Unlock()

		result := envcheck.Validate(sc, nil)
		if !result.OK {
			proc.setState(StateSkipped)
			o.sink.Emit(sc.Name, audit.EventSkipped, map[string]interface{}{"missingEnv": result.Missing})
			if o.metrics != nil {
				o.metrics.ServersSkipped.Inc()
			}
			o.registerHealthTarget(proc)
			continue
		}

		if o.metrics != nil {
			o.metrics.ServersTotal.Inc()
		}

		sup := newSupervisor(proc, o.logger, o.sink, o.metrics)
		o.mu.Lock()
		o.supervisors[sc.Name] = sup
		o.mu.Unlock()

		go sup.run(ctx)

		o.registerHealthTarget(proc)
	}

	return nil
}

func (o *Orchestrator) registerHealthTarget(proc *ServerProcess) {
	sc := proc.Config
	o.checker.Register(health.Target{
		Name:           sc.Name,
		Command:        sc.Command,
		ProbeArgs:      sc.ProbeArgs,
		WorkingDir:     sc.WorkingDir,
		ProbeTimeoutMs: sc.ProbeTimeoutMs,
		IsAlive:        proc.IsAlive,
		IsSkipped:      proc.IsSkipped,
	})
}

func (o *Orchestrator) onBreakerTransition(server string, from, to guard.BreakerState) {
	if o.metrics != nil {
		o.metrics.BreakerState.WithLabelValues(server).Set(breakerStateValue(to))
	}
	event := audit.EventBreakerClosed
	switch to {
	case guard.StateOpen:
		event = audit.EventBreakerOpen
	case guard.StateHalfOpen:
		event = audit.EventBreakerHalfOpen
	}
	o.sink.Emit(server, event, map[string]interface{}{"from": string(from), "to": string(to)})
}

func breakerStateValue(s guard.BreakerState) float64 {
	switch s {
	case guard.StateHalfOpen:
		return 1
	case guard.StateOpen:
		return 2
	default:
		return 0
	}
}

// Dispatch runs op against server through its guard chain (spec §4.5,
// §4.9). It returns an error if the server is unknown, skipped, or not
// currently running, before ever consulting a guard.
func Dispatch[T any](ctx context.Context, o *Orchestrator, server, requiredScope string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	o.mu.RLock()
	bundle, ok := o.bundles[server]
	proc := o.processes[server]
	o.mu.RUnlock()

	if !ok || proc == nil {
		return zero, fmt.Errorf("orchestrator: unknown server %q", server)
	}
	if proc.State() != StateRunning {
		return zero, fmt.Errorf("orchestrator: server %q is not running (state=%s)", server, proc.State())
	}

	return guard.Dispatch(ctx, bundle, requiredScope, op)
}

// Snapshot returns one server's current process state.
func (o *Orchestrator) Snapshot(server string) (Snapshot, bool) {
	o.mu.RLock()
	proc, ok := o.processes[server]
	o.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return proc.snapshot(), true
}

// Snapshots returns every server's current process state.
func (o *Orchestrator) Snapshots() []Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Snapshot, 0, len(o.processes))
	for _, proc := range o.processes {
		out = append(out, proc.snapshot())
	}
	return out
}

// Restart forces an immediate restart of a supervised server: it stops
// the current supervisor (terminating the process), resets restartCount
// to zero, and starts a fresh supervisor that spawns the server without
// waiting for a backoff (SPEC_FULL.md §6 POST /servers/{name}/restart).
func (o *Orchestrator) Restart(ctx context.Context, server string) error {
	o.mu.RLock()
	sup, ok := o.supervisors[server]
	o.mu.RUnlock()
	if !ok {
		return fmt.Errorf("orchestrator: no supervised process for server %q", server)
	}

	sup.Stop()

	o.mu.Lock()
	proc := o.processes[server]
	proc.mu.Lock()
	proc.restartCount = 0
	proc.mu.Unlock()
	newSup := newSupervisor(proc, o.logger, o.sink, o.metrics)
	o.supervisors[server] = newSup
	o.mu.Unlock()

	go newSup.run(ctx)
	return nil
}

// Shutdown gracefully stops every supervised server in parallel,
// bounded by the per-process grace period, then stops the health
// checker (spec §4.9 shutdown sequence).
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.RLock()
	sups := make([]*supervisor, 0, len(o.supervisors))
	for _, s := range o.supervisors {
		sups = append(sups, s)
	}
	o.mu.RUnlock()

	g, _ := errgroup.WithContext(ctx)
	for _, sup := range sups {
		sup := sup
		g.Go(func() error {
			sup.Stop()
			return nil
		})
	}
	err := g.Wait()

	o.checker.Stop()
	return err
}
