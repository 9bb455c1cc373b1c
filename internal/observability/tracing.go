package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TracingConfig toggles optional OTLP/HTTP trace export, gated by
// observability.otel in orchestrator configuration (spec §2 item 5).
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Tracing owns the OTel tracer provider lifecycle; Shutdown flushes
// pending spans during graceful shutdown (spec §4.9 step 4).
type Tracing struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
	logger   *zap.Logger
}

// NewTracing initializes OpenTelemetry tracing when enabled, or returns
// a no-op Tracing otherwise.
func NewTracing(ctx context.Context, cfg TracingConfig, logger *zap.Logger) (*Tracing, error) {
	if !cfg.Enabled {
		return &Tracing{tracer: otel.Tracer("noop"), logger: logger}, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(cfg.ServiceName),
	))
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	logger.Info("opentelemetry tracing initialized", zap.String("endpoint", cfg.OTLPEndpoint))

	return &Tracing{
		provider: provider,
		tracer:   provider.Tracer("mcp-orchestrator"),
		logger:   logger,
	}, nil
}

// Tracer returns the orchestrator's tracer (no-op when tracing is disabled).
func (t *Tracing) Tracer() oteltrace.Tracer { return t.tracer }

// Shutdown flushes and stops the tracer provider, if any.
func (t *Tracing) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
