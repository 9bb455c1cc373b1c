// Package audit provides the orchestrator's append-only, secret-redacted
// audit log (spec §3 AuditEvent, §4.4).
//
// The repo this was adapted from historically carried two overlapping
// redaction utilities with slightly different pattern sets. This
// package is the single consolidated replacement; see Redact in
// redact.go.
package audit

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType enumerates the audit events the orchestrator emits.
type EventType string

const (
	EventServerSpawn     EventType = "server_spawn"
	EventServerExit      EventType = "server_exit"
	EventServerRestart   EventType = "server_restart"
	EventRestartThrottled EventType = "restart_throttled"
	EventServerFailed    EventType = "server_failed"
	EventServerStopped   EventType = "server_stopped"
	EventForceKilled     EventType = "force_killed"
	EventSkipped         EventType = "skipped"
	EventProbeOK         EventType = "probe_ok"
	EventProbeFail       EventType = "probe_fail"
	EventEgressBlocked   EventType = "egress_blocked"
	EventScopeViolation  EventType = "scope_violation"
	EventRateLimited     EventType = "rate_limited"
	EventBreakerOpen     EventType = "breaker_open"
	EventBreakerHalfOpen EventType = "breaker_half_open"
	EventBreakerClosed   EventType = "breaker_closed"
)

// Event is one append-only, ordered, redacted audit record (spec §3).
type Event struct {
	ID        ulid.ULID              `json:"id"`
	Timestamp time.Time              `json:"timestamp"`
	Server    string                 `json:"server,omitempty"`
	Event     EventType              `json:"event"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// newEvent builds an Event with a fresh monotonic ULID and the current time.
// entropy is a per-process source so concurrent emitters never collide
// within the same millisecond.
func newEvent(entropy *ulid.MonotonicEntropy, server string, eventType EventType, data map[string]interface{}) Event {
	now := time.Now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), entropy)
	return Event{
		ID:        id,
		Timestamp: now,
		Server:    server,
		Event:     eventType,
		Data:      Redact(data),
	}
}
