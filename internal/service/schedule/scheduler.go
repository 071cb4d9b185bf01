package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mediware/smart-health-backend/internal/domain"
	"github.com/mediware/smart-health-backend/internal/infra/jobqueue"
)

// Scheduler expands extracted medications and submits every resulting event
// to the delayed job queue.
type Scheduler struct {
	expander *Expander
	queue    jobqueue.Queue
	now      func() time.Time
}

func NewScheduler(expander *Expander, queue jobqueue.Queue) *Scheduler {
	return &Scheduler{
		expander: expander,
		queue:    queue,
		now:      time.Now,
	}
}

// ScheduleMedications submits the full event calendar for each medication and
// returns the number of jobs submitted. A queue failure aborts the remaining
// submissions and is surfaced to the caller; events already submitted stay
// queued (there is no revocation path).
func (s *Scheduler) ScheduleMedications(ctx context.Context, meds []domain.Medication) (int, error) {
	now := s.now()
	submitted := 0

	for _, med := range meds {
		if err := med.Validate(); err != nil {
			return submitted, fmt.Errorf("invalid medication %q: %w", med.Name, err)
		}

		events := s.expander.Expand(med, now)

		for _, event := range events {
			delay := event.FireAt.Sub(now)
			if delay < 0 {
				// Already past: submit anyway, the queue fires it at once.
				delay = 0
			}

			if err := s.queue.Submit(ctx, event, delay); err != nil {
				return submitted, fmt.Errorf("failed to submit %s job for %q: %w",
					event.Kind, med.Name, err)
			}
			submitted++

			slog.InfoContext(ctx, "reminder scheduled",
				slog.String("event", "schedule.job.submitted"),
				slog.String("kind", event.Kind.String()),
				slog.String("medicine", event.MedicineName),
				slog.Time("fire_at", event.FireAt),
				slog.Duration("delay", delay),
			)
		}

		slog.InfoContext(ctx, "medication schedule submitted",
			slog.String("medicine", med.Name),
			slog.String("frequency", med.FrequencyCode),
			slog.Int("days", med.DurationDays),
			slog.Int("events", len(events)),
		)
	}

	return submitted, nil
}
