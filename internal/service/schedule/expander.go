package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/mediware/smart-health-backend/internal/domain"
	"github.com/mediware/smart-health-backend/internal/service/slots"
)

// Expander turns a medication into its full calendar of scheduled events.
type Expander struct {
	loc        *time.Location
	refillHour int
}

func NewExpander(loc *time.Location, refillHour int) *Expander {
	return &Expander{
		loc:        loc,
		refillHour: refillHour,
	}
}

// Expand produces d×k dose events (day-major, then slot order) followed by
// exactly one refill event, where d is the duration in days and k the number
// of resolved slots. With d=0 or no resolved slots there are no dose events
// but the refill event is still emitted. Events in the past relative to now
// are emitted anyway; the queue treats them as immediately due.
func (e *Expander) Expand(med domain.Medication, now time.Time) []domain.ScheduledEvent {
	resolved := slots.Resolve(med.FrequencyCode)

	events := make([]domain.ScheduledEvent, 0, len(resolved)*med.DurationDays+1)

	for day := 0; day < med.DurationDays; day++ {
		for _, slot := range resolved {
			fireAt := slot.At(now.In(e.loc).AddDate(0, 0, day), e.loc)
			events = append(events, domain.NewDoseEvent(uuid.NewString(), med.Name, fireAt))
		}
	}

	refillSlot := slots.Slot{Hour: e.refillHour}
	refillAt := refillSlot.At(now.In(e.loc).AddDate(0, 0, med.DurationDays), e.loc)
	quantity := len(resolved) * med.DurationDays

	events = append(events, domain.NewRefillEvent(uuid.NewString(), med.Name, refillAt, quantity))

	return events
}
