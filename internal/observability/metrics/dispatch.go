package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	dispatchMeterName = "reminder.dispatch"
)

type DispatchMetrics struct {
	jobsSubmitted    metric.Int64Counter
	jobsDispatched   metric.Int64Counter
	jobsRetried      metric.Int64Counter
	deliveryFailures metric.Int64Counter
	tokensRegistered metric.Int64Counter
	handlerDuration  metric.Float64Histogram
}

func NewDispatchMetrics() (*DispatchMetrics, error) {
	meter := otel.Meter(dispatchMeterName)

	jobsSubmitted, err := meter.Int64Counter(
		"reminder_jobs_submitted_total",
		metric.WithDescription("Total number of reminder jobs submitted to the delayed queue"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	jobsDispatched, err := meter.Int64Counter(
		"reminder_jobs_dispatched_total",
		metric.WithDescription("Total number of due jobs handled, by outcome"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	jobsRetried, err := meter.Int64Counter(
		"reminder_jobs_retried_total",
		metric.WithDescription("Total number of job retries scheduled"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	deliveryFailures, err := meter.Int64Counter(
		"reminder_delivery_failures_total",
		metric.WithDescription("Total number of per-token push delivery failures"),
		metric.WithUnit("{delivery}"),
	)
	if err != nil {
		return nil, err
	}

	tokensRegistered, err := meter.Int64Counter(
		"reminder_tokens_registered_total",
		metric.WithDescription("Total number of device token registrations accepted"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, err
	}

	handlerDuration, err := meter.Float64Histogram(
		"reminder_handler_duration_seconds",
		metric.WithDescription("Time spent handling one due job"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
		),
	)
	if err != nil {
		return nil, err
	}

	return &DispatchMetrics{
		jobsSubmitted:    jobsSubmitted,
		jobsDispatched:   jobsDispatched,
		jobsRetried:      jobsRetried,
		deliveryFailures: deliveryFailures,
		tokensRegistered: tokensRegistered,
		handlerDuration:  handlerDuration,
	}, nil
}

func (m *DispatchMetrics) RecordJobSubmitted(ctx context.Context, kind string) {
	m.jobsSubmitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

func (m *DispatchMetrics) RecordJobOutcome(ctx context.Context, kind, outcome string) {
	m.jobsDispatched.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func (m *DispatchMetrics) RecordJobRetried(ctx context.Context, kind string) {
	m.jobsRetried.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

func (m *DispatchMetrics) RecordDeliveryFailures(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	m.deliveryFailures.Add(ctx, int64(count))
}

func (m *DispatchMetrics) RecordTokenRegistered(ctx context.Context) {
	m.tokensRegistered.Add(ctx, 1)
}

func (m *DispatchMetrics) RecordHandlerDuration(ctx context.Context, kind string, duration time.Duration) {
	m.handlerDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
	))
}
