package domain

import (
	"context"
	"time"
)

// DeliveryRecord captures the outcome of dispatching one due job.
type DeliveryRecord struct {
	JobID        string
	Kind         string
	Outcome      string
	ScheduledFor time.Time
	DispatchedAt time.Time
	TokenCount   int
	FailedCount  int
}

// ScheduleLag is how far past its scheduled instant the job was dispatched.
func (r DeliveryRecord) ScheduleLag() time.Duration {
	return r.DispatchedAt.Sub(r.ScheduledFor)
}

type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, record DeliveryRecord) error
	Flush(ctx context.Context) error
	Close() error
}
