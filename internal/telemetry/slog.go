package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("fabriq.internal.telemetry")

type countGauge struct {
	once  sync.Once
	gauge metric.Int64Gauge
}

func (c *countGauge) record(id string, count int64) {
	c.once.Do(func() {
		gauge, err := meter.Int64Gauge("fabriq.count")
		if err != nil {
			slog.Warn("failed to create count gauge", "err", err)
			return
		}
		c.gauge = gauge
	})
	if c.gauge == nil {
		return
	}
	c.gauge.Record(context.Background(), count, metric.WithAttributes(attribute.String("id", id)))
}

// SlogAPI implements API using the log/slog package, counts are
// additionally recorded on an otel gauge.
type SlogAPI struct {
	counts *countGauge
}

func NewSlogAPI() SlogAPI {
	return SlogAPI{counts: &countGauge{}}
}

func (SlogAPI) formatParams(out *[]any, params []any) {
	for i, p := range params {
		*out = append(
			*out,
			fmt.Sprintf("params.%d", i),
			p,
		)
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	slog.Debug(message, remainingPairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
	if s.counts != nil {
		s.counts.record(id, count)
	}
}
