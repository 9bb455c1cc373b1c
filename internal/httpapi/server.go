// Package httpapi is the orchestrator's HTTP control surface: health,
// readiness, metrics, and server introspection/management endpoints
// (spec §4.8).
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mcporch/orchestrator/internal/audit"
	"github.com/mcporch/orchestrator/internal/health"
	"github.com/mcporch/orchestrator/internal/observability"
	"github.com/mcporch/orchestrator/internal/orchestrator"
)

// Server wraps the chi router exposing the orchestrator's control
// surface on one HTTP listener.
type Server struct {
	router *chi.Mux
	orch   *orchestrator.Orchestrator
	checker *health.Checker
	sink   *audit.Sink
	metrics *observability.Metrics
	logger *zap.Logger
}

// New builds the control-surface router (spec §4.8).
func New(orch *orchestrator.Orchestrator, checker *health.Checker, sink *audit.Sink, metrics *observability.Metrics, logger *zap.Logger) *Server {
	s := &Server{orch: orch, checker: checker, sink: sink, metrics: metrics, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(correlationID)
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/servers", func(r chi.Router) {
		r.Get("/", s.handleListServers)
		r.Get("/{name}", s.handleGetServer)
		r.Post("/{name}/restart", s.handleRestartServer)
		r.Get("/{name}/audit", s.handleServerAudit)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type correlationIDKey struct{}

// correlationID stamps every response with an X-Correlation-ID header,
// reusing the inbound value when the caller supplied one, and makes it
// available to handlers via the request context (spec §4.8: "every
// error response carries a correlation id").
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Correlation-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Correlation-ID", id)
		ctx := context.WithValue(r.Context(), correlationIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func correlationIDFromContext(r *http.Request) string {
	id, _ := r.Context().Value(correlationIDKey{}).(string)
	return id
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = r.URL.Path
		}
		labels := []string{r.Method, routePattern, http.StatusText(ww.Status())}
		s.metrics.HTTPRequests.WithLabelValues(labels...).Inc()
		s.metrics.HTTPDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}
