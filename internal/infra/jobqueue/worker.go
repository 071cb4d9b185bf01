package jobqueue

import (
	"context"
	"log/slog"
	"time"

	"github.com/mediware/smart-health-backend/internal/config"
	"github.com/mediware/smart-health-backend/internal/observability/metrics"
)

// Worker drains due jobs from a RedisQueue and feeds them to the single
// registered handler. One worker per process; the claim scripts keep multiple
// worker processes from double-claiming a job within the visibility window.
type Worker struct {
	queue   *RedisQueue
	handler Handler
	cfg     *config.QueueConfig
	metrics *metrics.DispatchMetrics
}

func NewWorker(queue *RedisQueue, handler Handler, cfg *config.QueueConfig, m *metrics.DispatchMetrics) *Worker {
	return &Worker{
		queue:   queue,
		handler: handler,
		cfg:     cfg,
		metrics: m,
	}
}

// Run polls for due jobs until the context is cancelled. Queue connectivity
// errors are logged and retried on the next tick; submitted jobs stay durable
// in Redis across reconnects.
func (w *Worker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "queue worker started",
		slog.String("event", "queue.worker.start"),
		slog.Duration("poll_interval", w.cfg.PollInterval),
		slog.Int("max_attempts", w.cfg.MaxAttempts),
	)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "queue worker stopped",
				slog.String("event", "queue.worker.stop"),
			)
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if err := w.queue.reclaimStale(ctx); err != nil {
		slog.WarnContext(ctx, "failed to reclaim stale jobs",
			slog.String("error", err.Error()),
		)
	}

	jobs, err := w.queue.claimDue(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to claim due jobs",
			slog.String("error", err.Error()),
		)
		return
	}

	for _, job := range jobs {
		w.handle(ctx, job)
	}
}

func (w *Worker) handle(ctx context.Context, job jobRecord) {
	slog.InfoContext(ctx, "job started",
		slog.String("event", "queue.job.started"),
		slog.String("job_id", job.ID),
		slog.String("kind", job.Event.Kind.String()),
		slog.Int("attempt", job.Attempts+1),
	)

	start := time.Now()
	err := w.handler(ctx, job.Event)
	duration := time.Since(start)

	if w.metrics != nil {
		w.metrics.RecordHandlerDuration(ctx, job.Event.Kind.String(), duration)
	}

	if err != nil {
		slog.WarnContext(ctx, "job failed",
			slog.String("event", "queue.job.failed"),
			slog.String("job_id", job.ID),
			slog.String("kind", job.Event.Kind.String()),
			slog.String("error", err.Error()),
		)
		if w.metrics != nil {
			w.metrics.RecordJobOutcome(ctx, job.Event.Kind.String(), "failed")
		}
		if err := w.queue.retryOrBury(ctx, job, err); err != nil {
			slog.ErrorContext(ctx, "failed to reschedule failed job",
				slog.String("job_id", job.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	if err := w.queue.complete(ctx, job); err != nil {
		// The job stays in processing and will be reclaimed after the
		// visibility timeout; dispatch is idempotent at the notification
		// level so the duplicate send is tolerable.
		slog.WarnContext(ctx, "failed to acknowledge completed job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if w.metrics != nil {
		w.metrics.RecordJobOutcome(ctx, job.Event.Kind.String(), "completed")
	}

	slog.InfoContext(ctx, "job completed",
		slog.String("event", "queue.job.completed"),
		slog.String("job_id", job.ID),
		slog.String("kind", job.Event.Kind.String()),
		slog.Duration("duration", duration),
	)
}
