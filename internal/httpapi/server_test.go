package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcporch/orchestrator/internal/audit"
	"github.com/mcporch/orchestrator/internal/config"
	"github.com/mcporch/orchestrator/internal/health"
	"github.com/mcporch/orchestrator/internal/observability"
	"github.com/mcporch/orchestrator/internal/orchestrator"
	"github.com/mcporch/orchestrator/internal/registry"
)

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testServer(t *testing.T) *Server {
	t.Helper()
	reg := registry.New(map[string]*config.ServerConfig{})
	sink := audit.NewSink(discardWriter{}, nil)
	metrics := observability.NewMetrics()
	checker := health.NewChecker(time.Second, sink, metrics, nil)
	orch := orchestrator.New(reg, nil, sink, metrics, checker)
	require.NoError(t, orch.Start(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
	return New(orch, checker, sink, metrics, nil)
}

func TestHandleHealthz_AlwaysOK(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleReadyz_ReadyWhenNoServers(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleGetServer_UnknownReturns404(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/servers/ghost", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCorrelationIDHeaderIsEchoed(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "test-fixed-id")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, "test-fixed-id", rec.Header().Get("X-Correlation-ID"))
}
