package session

import (
	"context"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "tourista/session"

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type meters struct {
	tracer trace.Tracer

	refreshCount    metric.Int64Counter
	refreshDuration metric.Int64Histogram
	queuedRequests  metric.Int64Counter
}

func newMeters(ctx context.Context) (*meters, error) {
	meter := otel.Meter(
		instrumentationName,
		metric.WithInstrumentationVersion(otel.Version()),
	)

	refreshCount, err := meter.Int64Counter(
		"session.refresh_count",
		metric.WithDescription("Token refresh calls issued"),
		metric.WithUnit("call"),
	)
	if err != nil {
		return nil, oops.In("Session Coordinator").
			WithContext(ctx).
			Wrapf(err, "creating refresh_count meter")
	}

	refreshDuration, err := meter.Int64Histogram(
		"session.refresh_duration",
		metric.WithDescription("Token refresh end to end duration"),
		metric.WithUnit("milliseconds"),
	)
	if err != nil {
		return nil, oops.In("Session Coordinator").
			WithContext(ctx).
			Wrapf(err, "creating refresh_duration meter")
	}

	queuedRequests, err := meter.Int64Counter(
		"session.queued_requests",
		metric.WithDescription("Requests that waited for an in-flight refresh"),
		metric.WithUnit("request"),
	)
	if err != nil {
		return nil, oops.In("Session Coordinator").
			WithContext(ctx).
			Wrapf(err, "creating queued_requests meter")
	}

	return &meters{
		tracer:          otel.Tracer(instrumentationName),
		refreshCount:    refreshCount,
		refreshDuration: refreshDuration,
		queuedRequests:  queuedRequests,
	}, nil
}

func (m *meters) recordRefresh(ctx context.Context, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.refreshCount.Add(ctx, 1, attrs)
	m.refreshDuration.Record(ctx, elapsed.Milliseconds(), attrs)
}

func (m *meters) recordQueued(ctx context.Context) {
	m.queuedRequests.Add(ctx, 1)
}
