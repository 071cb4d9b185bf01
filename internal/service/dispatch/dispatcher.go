package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediware/smart-health-backend/internal/domain"
	"github.com/mediware/smart-health-backend/internal/infra/push"
	"github.com/mediware/smart-health-backend/internal/observability/metrics"
	"github.com/mediware/smart-health-backend/internal/registry"
)

// Outcome classifies how a due job was handled.
type Outcome string

const (
	OutcomeDelivered   Outcome = "delivered"
	OutcomePartial     Outcome = "partial_failure"
	OutcomeFailed      Outcome = "failed"
	OutcomeNoTokens    Outcome = "no_tokens"
	OutcomeUnknownType Outcome = "unknown_type"
)

// Result reports the fan-out of one due job across the registered tokens.
type Result struct {
	Outcome Outcome
	Tokens  int
	Failed  int
}

// Dispatcher consumes due jobs, renders them, and fans each one out to every
// token in the registry. Jobs are independent; the registry snapshot is the
// only shared read.
type Dispatcher struct {
	registry *registry.Registry
	sender   push.Sender
	renderer *Renderer
	metrics  *metrics.DispatchMetrics
	recorder domain.DeliveryRecorder
	now      func() time.Time
}

func NewDispatcher(
	reg *registry.Registry,
	sender push.Sender,
	renderer *Renderer,
	m *metrics.DispatchMetrics,
	recorder domain.DeliveryRecorder,
) *Dispatcher {
	return &Dispatcher{
		registry: reg,
		sender:   sender,
		renderer: renderer,
		metrics:  m,
		recorder: recorder,
		now:      time.Now,
	}
}

// HandleJob is the queue handler. It returns an error only when at least one
// delivery failed, so the queue's retry policy re-attempts the job; resending
// a push for an already-delivered dose is tolerable, dropping one is not.
func (d *Dispatcher) HandleJob(ctx context.Context, event domain.ScheduledEvent) error {
	_, err := d.Dispatch(ctx, event)
	return err
}

func (d *Dispatcher) Dispatch(ctx context.Context, event domain.ScheduledEvent) (Result, error) {
	notification, err := d.renderer.Render(event)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEventKind) {
			// Not a success, but not retryable either: no rendering rule
			// means no delivery attempt will ever work.
			slog.WarnContext(ctx, "skipping job of unknown type",
				slog.String("event", "dispatch.unknown_type"),
				slog.String("job_id", event.ID),
				slog.String("kind", event.Kind.String()),
			)
			result := Result{Outcome: OutcomeUnknownType}
			d.finish(ctx, event, result)
			return result, nil
		}
		return Result{Outcome: OutcomeFailed}, err
	}

	tokens := d.registry.List()
	if len(tokens) == 0 {
		slog.WarnContext(ctx, "no registered device tokens, nothing to deliver",
			slog.String("event", "dispatch.no_tokens"),
			slog.String("job_id", event.ID),
		)
		result := Result{Outcome: OutcomeNoTokens}
		d.finish(ctx, event, result)
		return result, nil
	}

	slog.InfoContext(ctx, "dispatching notification",
		slog.String("event", "dispatch.start"),
		slog.String("job_id", event.ID),
		slog.String("kind", event.Kind.String()),
		slog.String("title", notification.Title),
		slog.Int("tokens", len(tokens)),
	)

	// One failing token must not block the rest of the fan-out.
	var deliveryErrs []error
	for _, token := range tokens {
		if err := d.sender.Send(ctx, token, notification.Title, notification.Body); err != nil {
			slog.ErrorContext(ctx, "push delivery failed",
				slog.String("event", "dispatch.delivery.failed"),
				slog.String("job_id", event.ID),
				slog.String("token", token),
				slog.String("error", err.Error()),
			)
			deliveryErrs = append(deliveryErrs, fmt.Errorf("token %s: %w", token, err))
		}
	}

	result := Result{
		Outcome: OutcomeDelivered,
		Tokens:  len(tokens),
		Failed:  len(deliveryErrs),
	}
	switch {
	case result.Failed == result.Tokens:
		result.Outcome = OutcomeFailed
	case result.Failed > 0:
		result.Outcome = OutcomePartial
	}

	if d.metrics != nil {
		d.metrics.RecordDeliveryFailures(ctx, result.Failed)
	}
	d.finish(ctx, event, result)

	if len(deliveryErrs) > 0 {
		return result, fmt.Errorf("delivery failed for %d of %d tokens: %w",
			result.Failed, result.Tokens, errors.Join(deliveryErrs...))
	}

	return result, nil
}

// finish records the dispatch outcome for operational analytics.
func (d *Dispatcher) finish(ctx context.Context, event domain.ScheduledEvent, result Result) {
	if d.recorder == nil {
		return
	}

	record := domain.DeliveryRecord{
		JobID:        event.ID,
		Kind:         event.Kind.String(),
		Outcome:      string(result.Outcome),
		ScheduledFor: event.FireAt,
		DispatchedAt: d.now(),
		TokenCount:   result.Tokens,
		FailedCount:  result.Failed,
	}

	if err := d.recorder.RecordDelivery(ctx, record); err != nil {
		slog.WarnContext(ctx, "failed to record delivery result",
			slog.String("job_id", event.ID),
			slog.String("error", err.Error()),
		)
	}
}
