package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the orchestrator's Prometheus metrics registry (spec §2
// item 5, §4.8 /metrics).
type Metrics struct {
	registry *prometheus.Registry

	ServersTotal     prometheus.Gauge
	ServersRunning   prometheus.Gauge
	ServersFailed    prometheus.Gauge
	ServersSkipped   prometheus.Gauge
	Restarts         *prometheus.CounterVec
	RestartsThrottled *prometheus.CounterVec
	ProbeTotal       *prometheus.CounterVec
	ProbeLatency     *prometheus.HistogramVec
	GuardRejections  *prometheus.CounterVec
	BreakerState     *prometheus.GaugeVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
}

// NewMetrics builds and registers every orchestrator metric on a fresh
// registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ServersTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchestrator_servers_total", Help: "Enabled servers that passed environment validation.",
		}),
		ServersRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchestrator_servers_running", Help: "Servers currently in the running state.",
		}),
		ServersFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchestrator_servers_failed", Help: "Servers that exhausted MAX_RESTARTS.",
		}),
		ServersSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orchestrator_servers_skipped", Help: "Servers skipped due to env validation failure.",
		}),
		Restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_server_restarts_total", Help: "Restart attempts per server.",
		}, []string{"server"}),
		RestartsThrottled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_server_restart_throttled_total", Help: "Restart attempts suppressed by backoff.",
		}, []string{"server"}),
		ProbeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_health_probes_total", Help: "Health probes by outcome.",
		}, []string{"server", "outcome"}),
		ProbeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "orchestrator_health_probe_duration_seconds", Help: "Health probe latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"server"}),
		GuardRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_guard_rejections_total", Help: "Dispatch rejections by guard kind.",
		}, []string{"server", "guard"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "orchestrator_circuit_breaker_state", Help: "0=closed 1=half_open 2=open.",
		}, []string{"server"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orchestrator_http_requests_total", Help: "HTTP requests handled by the control surface.",
		}, []string{"method", "path", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "orchestrator_http_request_duration_seconds", Help: "HTTP request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}

	reg.MustRegister(
		m.ServersTotal, m.ServersRunning, m.ServersFailed, m.ServersSkipped,
		m.Restarts, m.RestartsThrottled, m.ProbeTotal, m.ProbeLatency,
		m.GuardRejections, m.BreakerState, m.HTTPRequests, m.HTTPDuration,
	)
	return m
}

// Handler exposes the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
