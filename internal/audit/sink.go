package audit

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const ringBufferSize = 500

// Sink is the process-wide, append-only, write-serialized audit writer
// (spec §4.4, §5: "Audit sink is shared, write-serialised"). It never
// deletes or rewrites a previously emitted event.
type Sink struct {
	mu      sync.Mutex
	w       io.Writer
	enc     *json.Encoder
	entropy *ulid.MonotonicEntropy
	logger  *zap.Logger

	ringMu sync.RWMutex
	ring   map[string][]Event // per-server tail, bounded to ringBufferSize
}

// NewSink wraps w (os.Stdout in production, a file in development per
// spec §4.4) as the audit sink.
func NewSink(w io.Writer, logger *zap.Logger) *Sink {
	return &Sink{
		w:       w,
		enc:     json.NewEncoder(w),
		entropy: ulid.Monotonic(rand.Reader, 0),
		logger:  logger,
		ring:    make(map[string][]Event),
	}
}

// Emit appends one redacted event to the sink and its per-server ring
// buffer. Emission order matches real time with respect to a single
// server's lifecycle (spec §5); across servers no ordering is promised.
func (s *Sink) Emit(server string, eventType EventType, data map[string]interface{}) Event {
	s.mu.Lock()
	ev := newEvent(s.entropy, server, eventType, data)
	if err := s.enc.Encode(ev); err != nil && s.logger != nil {
		s.logger.Error("audit sink write failed", zap.Error(err), zap.String("event", string(eventType)))
	}
	s.mu.Unlock()

	if server != "" {
		s.appendRing(server, ev)
	}
	return ev
}

func (s *Sink) appendRing(server string, ev Event) {
	s.ringMu.Lock()
	defer s.ringMu.Unlock()
	buf := append(s.ring[server], ev)
	if len(buf) > ringBufferSize {
		buf = buf[len(buf)-ringBufferSize:]
	}
	s.ring[server] = buf
}

// Tail returns up to limit of the most recent events recorded for
// server (SPEC_FULL.md §6 GET /servers/{name}/audit).
func (s *Sink) Tail(server string, limit int) []Event {
	s.ringMu.RLock()
	defer s.ringMu.RUnlock()

	buf := s.ring[server]
	if limit <= 0 || limit > len(buf) {
		limit = len(buf)
	}
	out := make([]Event, limit)
	copy(out, buf[len(buf)-limit:])
	return out
}
