package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"

	"assistance-portal/internal/common/logger"
)

// Observability owns the otel meter provider (exported through the default
// Prometheus registry) and the tracer used around provider calls.
type Observability struct {
	meterProvider *metric.MeterProvider
	tracer        trace.Tracer
	aiCalls       otelmetric.Int64Counter
	aiDuration    otelmetric.Float64Histogram
}

// New installs a Prometheus-backed meter provider. On exporter failure the
// returned value still works but records nothing.
func New(serviceName string, log logger.Logger) *Observability {
	o := &Observability{tracer: otel.Tracer(serviceName)}

	exporter, err := prometheus.New()
	if err != nil {
		if log != nil {
			log.Warn("otel prometheus exporter unavailable", map[string]interface{}{"error": err.Error()})
		}
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter(serviceName)

	o.meterProvider = provider
	o.aiCalls, _ = meter.Int64Counter(
		"ai.provider.calls",
		otelmetric.WithDescription("Number of AI provider calls"),
	)
	o.aiDuration, _ = meter.Float64Histogram(
		"ai.provider.duration",
		otelmetric.WithDescription("AI provider call duration"),
		otelmetric.WithUnit("ms"),
	)
	return o
}

// StartSpan starts a span named name.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer("assistance-portal")
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordAICall records one provider call.
func (o *Observability) RecordAICall(ctx context.Context, operation, outcome string, elapsed time.Duration) {
	attrs := otelmetric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	if o.aiCalls != nil {
		o.aiCalls.Add(ctx, 1, attrs)
	}
	if o.aiDuration != nil {
		o.aiDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
