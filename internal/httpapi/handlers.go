package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mcporch/orchestrator/internal/guard"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// handleHealthz reports liveness: the process itself is up (spec §4.8
// /healthz is always 200 once the server is serving requests at all).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz aggregates every supervised server's latest probe result
// (spec §4.6, §4.8): 200 when all are healthy, 503 when any are not.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ready := s.checker.ReadinessStatus()
	status := http.StatusOK
	if !ready.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, ready)
}

// handleListServers returns every configured server's process snapshot
// (SPEC_FULL.md §4.8 GET /servers).
func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Snapshots())
}

// handleGetServer returns one server's process snapshot (spec §4.8 GET
// /servers/{name}).
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	snap, ok := s.orch.Snapshot(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("NotFound", "unknown server", r))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleRestartServer forces an immediate restart (SPEC_FULL.md §6
// POST /servers/{name}/restart). The restarted supervisor outlives the
// request, so it gets a context that is not canceled with it.
func (s *Server) handleRestartServer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.orch.Restart(context.WithoutCancel(r.Context()), name); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("NotFound", err.Error(), r))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"server": name, "status": "restarting"})
}

// handleServerAudit returns the tail of one server's audit log
// (SPEC_FULL.md §6 GET /servers/{name}/audit?limit=N).
func (s *Server) handleServerAudit(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, s.sink.Tail(name, limit))
}

// errorBody builds the standard error envelope (spec §7): a stable
// error code, a human message, and the correlation id stamped by the
// correlationID middleware. It never includes a stack trace or secret
// values.
func errorBody(code, message string, r *http.Request) map[string]string {
	return map[string]string{
		"error":         code,
		"message":       message,
		"correlationId": correlationIDFromContext(r),
	}
}

// WriteGuardError maps a guard-chain rejection to the spec §7 status
// code/header contract. Handlers that call orchestrator.Dispatch should
// route a non-nil error through this before falling back to a generic
// 500.
func WriteGuardError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *guard.RateLimitedError:
		w.Header().Set("Retry-After", strconv.FormatInt(e.RetryAfterMs/1000+1, 10))
		writeJSON(w, http.StatusTooManyRequests, errorBody("RateLimited", err.Error(), r))
	case *guard.CircuitOpenError:
		if e.ResetTimeoutMs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(e.ResetTimeoutMs/1000+1))
		}
		writeJSON(w, http.StatusServiceUnavailable, errorBody("CircuitOpen", err.Error(), r))
	case *guard.TimeoutError:
		writeJSON(w, http.StatusGatewayTimeout, errorBody("Timeout", err.Error(), r))
	case *guard.ScopeViolationError:
		writeJSON(w, http.StatusForbidden, errorBody("ScopeViolation", err.Error(), r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody("InternalError", "internal error", r))
	}
}
