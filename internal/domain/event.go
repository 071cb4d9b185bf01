package domain

import (
	"time"
)

// EventKind distinguishes the two notification types a medication schedule
// produces.
type EventKind string

const (
	EventKindDose   EventKind = "dose"
	EventKindRefill EventKind = "refill"
)

func (k EventKind) String() string {
	return string(k)
}

func (k EventKind) Valid() bool {
	return k == EventKindDose || k == EventKindRefill
}

// ScheduledEvent is a single future notification: either a dose reminder at a
// wall-clock slot or the refill reminder at the end of the course. It is the
// job payload owned by the delayed queue from submission until dispatch.
type ScheduledEvent struct {
	ID           string    `json:"id"`
	Kind         EventKind `json:"type"`
	MedicineName string    `json:"medicine"`
	FireAt       time.Time `json:"notify_at"`
	// Quantity is the total dose count for the course. Set on refill events
	// only.
	Quantity int `json:"quantity,omitempty"`
}

func NewDoseEvent(id, medicine string, fireAt time.Time) ScheduledEvent {
	return ScheduledEvent{
		ID:           id,
		Kind:         EventKindDose,
		MedicineName: medicine,
		FireAt:       fireAt,
	}
}

func NewRefillEvent(id, medicine string, fireAt time.Time, quantity int) ScheduledEvent {
	return ScheduledEvent{
		ID:           id,
		Kind:         EventKindRefill,
		MedicineName: medicine,
		FireAt:       fireAt,
		Quantity:     quantity,
	}
}
