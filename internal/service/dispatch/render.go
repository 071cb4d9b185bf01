package dispatch

import (
	"fmt"
	"time"

	"github.com/mediware/smart-health-backend/internal/domain"
)

// displayTimeFormat renders an instant with the display zone's abbreviation,
// e.g. "2024-01-01 08:00:00 IST".
const displayTimeFormat = "2006-01-02 15:04:05 MST"

// Notification is the rendered display text for one scheduled event.
type Notification struct {
	Title string
	Body  string
}

// Renderer produces notification text, converting fire times into the single
// configured display timezone.
type Renderer struct {
	loc *time.Location
}

func NewRenderer(loc *time.Location) *Renderer {
	return &Renderer{loc: loc}
}

func (r *Renderer) Render(event domain.ScheduledEvent) (Notification, error) {
	switch event.Kind {
	case domain.EventKindDose:
		return Notification{
			Title: fmt.Sprintf("Time to take %s", event.MedicineName),
			Body:  fmt.Sprintf("As per your schedule: %s", r.FormatTime(event.FireAt)),
		}, nil
	case domain.EventKindRefill:
		return Notification{
			Title: fmt.Sprintf("Refill Reminder for %s", event.MedicineName),
			Body:  fmt.Sprintf("You need %d more doses.", event.Quantity),
		}, nil
	default:
		return Notification{}, fmt.Errorf("%w: %q", domain.ErrUnknownEventKind, event.Kind)
	}
}

// FormatTime converts t into the display timezone.
func (r *Renderer) FormatTime(t time.Time) string {
	return t.In(r.loc).Format(displayTimeFormat)
}
