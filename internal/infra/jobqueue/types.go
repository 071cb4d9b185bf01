package jobqueue

import (
	"time"

	"github.com/mediware/smart-health-backend/internal/domain"
)

// jobRecord is the persisted form of a queued job. Attempts is rewritten on
// every retry so the retry budget survives worker restarts.
type jobRecord struct {
	ID          string                `json:"id"`
	Event       domain.ScheduledEvent `json:"event"`
	Attempts    int                   `json:"attempts"`
	SubmittedAt time.Time             `json:"submitted_at"`
	DueAt       time.Time             `json:"due_at"`
}

// deadLetterRecord wraps a job that permanently failed, preserving enough to
// diagnose or replay it by hand.
type deadLetterRecord struct {
	Job      jobRecord `json:"job"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
