package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// exporters connect lazily, this only bounds option validation
const exporterSetupTimeout = 3 * time.Second

// a run finishes in minutes, Shutdown flushes whatever is left after the
// last interval
const metricExportInterval = 15 * time.Second

func newTraceProvider(ctx context.Context, r *resource.Resource, conn OtlpConnConfig) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterSetupTimeout)
	defer cancel()

	exporter, err := otlptracehttp.New(
		ctx,
		otlptracehttp.WithEndpointURL(conn.Endpoint),
		otlptracehttp.WithHeaders(conn.Headers),
	)
	if err != nil {
		return nil, err
	}
	slog.Debug("exporting traces", "endpoint", conn.Endpoint)

	return trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(r),
	), nil
}

func newMetricProvider(ctx context.Context, r *resource.Resource, conn OtlpConnConfig) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterSetupTimeout)
	defer cancel()

	exporter, err := otlpmetrichttp.New(
		ctx,
		otlpmetrichttp.WithEndpointURL(conn.Endpoint),
		otlpmetrichttp.WithHeaders(conn.Headers),
	)
	if err != nil {
		return nil, err
	}
	slog.Debug("exporting metrics", "endpoint", conn.Endpoint)

	reader := metric.NewPeriodicReader(exporter, metric.WithInterval(metricExportInterval))
	return metric.NewMeterProvider(
		metric.WithReader(reader),
		metric.WithResource(r),
	), nil
}
