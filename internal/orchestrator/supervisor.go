package orchestrator

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mcporch/orchestrator/internal/audit"
	"github.com/mcporch/orchestrator/internal/config"
	"github.com/mcporch/orchestrator/internal/observability"
)

// gracePeriod is how long a server is given to exit after SIGTERM
// before the supervisor escalates to SIGKILL (spec §4.9 shutdown step).
const gracePeriod = 10 * time.Second

// supervisor owns the spawn/wait/restart loop for exactly one server.
type supervisor struct {
	proc    *ServerProcess
	logger  *zap.Logger
	sink    *audit.Sink
	metrics *observability.Metrics

	stopRequested chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
}

func newSupervisor(proc *ServerProcess, logger *zap.Logger, sink *audit.Sink, metrics *observability.Metrics) *supervisor {
	return &supervisor{
		proc:          proc,
		logger:        logger,
		sink:          sink,
		metrics:       metrics,
		stopRequested: make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// run drives the server's full lifecycle until either it is permanently
// stopped (via Stop), or it exhausts MAX_RESTARTS and becomes failed
// (spec §4.9). It always returns once the process reaches a terminal
// state.
func (s *supervisor) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-s.stopRequested:
			s.proc.setState(StateStopped)
			return
		default:
		}

		cmd, exitCh, err := s.spawn(ctx)
		if err != nil {
			s.recordFailedSpawn(err)
			if !s.scheduleRestart(ctx) {
				return
			}
			continue
		}

		s.proc.setState(StateRunning)
		stableTimer := s.armStabilityTimer(ctx)

		select {
		case <-s.stopRequested:
			stableTimer.Stop()
			s.terminate(cmd)
			s.proc.setState(StateStopped)
			if s.metrics != nil {
				s.metrics.ServersRunning.Dec()
			}
			s.sink.Emit(s.proc.Name, audit.EventServerStopped, nil)
			return
		case exitErr := <-exitCh:
			stableTimer.Stop()
			s.recordExit(exitErr)
			if !s.scheduleRestart(ctx) {
				return
			}
		case <-ctx.Done():
			stableTimer.Stop()
			s.terminate(cmd)
			s.proc.setState(StateStopped)
			if s.metrics != nil {
				s.metrics.ServersRunning.Dec()
			}
			return
		}
	}
}

// spawn starts the child process and streams its stdout/stderr to the
// logger line by line (spec §4.9: "child output is captured, never
// lost"). It returns a channel that receives the Wait error exactly
// once the process exits on its own.
func (s *supervisor) spawn(ctx context.Context) (*exec.Cmd, <-chan error, error) {
	cfg := s.proc.Config
	cmd := exec.Command(cfg.Command, cfg.Args...)
	cmd.Dir = cfg.WorkingDir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}

	s.proc.mu.Lock()
	s.proc.pid = cmd.Process.Pid
	s.proc.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ServersRunning.Inc()
	}
	s.sink.Emit(s.proc.Name, audit.EventServerSpawn, map[string]interface{}{"pid": cmd.Process.Pid})
	if s.logger != nil {
		s.logger.Info("server spawned", zap.String("server", s.proc.Name), zap.Int("pid", cmd.Process.Pid))
	}

	go streamLines(stdout, s.logger, s.proc.Name, "stdout")
	go streamLines(stderr, s.logger, s.proc.Name, "stderr")

	exitCh := make(chan error, 1)
	go func() { exitCh <- cmd.Wait() }()

	return cmd, exitCh, nil
}

func streamLines(r io.Reader, logger *zap.Logger, server, stream string) {
	if logger == nil {
		return
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		logger.Info("child output", zap.String("server", server), zap.String("stream", stream), zap.String("line", sc.Text()))
	}
}

// terminate sends SIGTERM and, if the process has not exited within
// gracePeriod, escalates to SIGKILL (spec §4.9 graceful-shutdown step).
func (s *supervisor) terminate(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	s.proc.setState(StateStopping)
	_ = cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_, _ = cmd.Process.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(gracePeriod):
		s.sink.Emit(s.proc.Name, audit.EventForceKilled, nil)
		_ = cmd.Process.Kill()
		<-done
	}
}

// armStabilityTimer resets restartCount to zero after the server has
// stayed in the running state continuously for StabilityWindowMs (spec
// §9 Open Question, resolved per SPEC_FULL.md recommendation (a)).
func (s *supervisor) armStabilityTimer(ctx context.Context) *time.Timer {
	window := time.Duration(s.proc.Config.StabilityWindowMs) * time.Millisecond
	t := time.AfterFunc(window, func() {
		s.proc.mu.Lock()
		s.proc.restartCount = 0
		s.proc.mu.Unlock()
	})
	return t
}

func (s *supervisor) recordExit(err error) {
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	}
	s.proc.mu.Lock()
	s.proc.lastExitCode = code
	if err != nil {
		s.proc.lastError = err.Error()
	}
	s.proc.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ServersRunning.Dec()
	}
	s.sink.Emit(s.proc.Name, audit.EventServerExit, map[string]interface{}{"exitCode": code})
	if s.logger != nil {
		s.logger.Warn("server exited", zap.String("server", s.proc.Name), zap.Int("exitCode", code))
	}
}

func (s *supervisor) recordFailedSpawn(err error) {
	s.proc.mu.Lock()
	s.proc.lastError = err.Error()
	s.proc.mu.Unlock()
	if s.logger != nil {
		s.logger.Error("server failed to spawn", zap.String("server", s.proc.Name), zap.Error(err))
	}
}

// scheduleRestart increments restartCount, and either sleeps for the
// computed backoff and returns true (caller should respawn), or marks
// the server permanently failed and returns false (spec §3 MAX_RESTARTS,
// §4.9 backoff formula).
func (s *supervisor) scheduleRestart(ctx context.Context) bool {
	s.proc.mu.Lock()
	s.proc.restartCount++
	count := s.proc.restartCount
	s.proc.mu.Unlock()

	if count > config.MaxRestarts {
		s.proc.setState(StateFailed)
		if s.metrics != nil {
			s.metrics.ServersFailed.Inc()
		}
		s.sink.Emit(s.proc.Name, audit.EventServerFailed, map[string]interface{}{"restartCount": count})
		return false
	}

	delay := computeBackoff(count)
	s.proc.setState(StateStarting)
	if s.metrics != nil {
		s.metrics.Restarts.WithLabelValues(s.proc.Name).Inc()
	}
	s.sink.Emit(s.proc.Name, audit.EventServerRestart, map[string]interface{}{"restartCount": count, "backoffMs": delay.Milliseconds()})

	select {
	case <-time.After(delay):
		return true
	case <-s.stopRequested:
		s.proc.setState(StateStopped)
		return false
	case <-ctx.Done():
		return false
	}
}

// Stop requests a graceful shutdown and blocks until the supervisor's
// run loop has fully returned.
func (s *supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopRequested) })
	<-s.done
}
