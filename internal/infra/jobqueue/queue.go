package jobqueue

import (
	"context"
	"time"

	"github.com/mediware/smart-health-backend/internal/domain"
)

// Queue accepts (payload, delay) pairs for deferred dispatch. A delay of zero
// or less means the job is due immediately; submissions are never dropped for
// being in the past.
type Queue interface {
	Submit(ctx context.Context, event domain.ScheduledEvent, delay time.Duration) error
}

// Handler is the single consumer invoked once per due job. A non-nil error
// triggers the queue's bounded retry policy.
type Handler func(ctx context.Context, event domain.ScheduledEvent) error
