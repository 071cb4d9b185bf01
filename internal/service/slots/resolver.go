package slots

import (
	"fmt"
	"strings"
	"time"
)

// Slot is a wall-clock time of day at which a dose reminder fires.
type Slot struct {
	Hour   int
	Minute int
}

func (s Slot) String() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

// At places the slot on the calendar day of t in the given location.
func (s Slot) At(t time.Time, loc *time.Location) time.Time {
	year, month, day := t.In(loc).Date()
	return time.Date(year, month, day, s.Hour, s.Minute, 0, 0, loc)
}

// Canonical daily dose slots, addressed positionally by the frequency code.
var canonical = []Slot{
	{Hour: 8, Minute: 0},
	{Hour: 13, Minute: 0},
	{Hour: 20, Minute: 0},
}

// Canonical returns a copy of the canonical slot list.
func Canonical() []Slot {
	out := make([]Slot, len(canonical))
	copy(out, canonical)
	return out
}

// Resolve maps a dash-separated binary frequency code (e.g. "1-0-1") to the
// canonical slots at "1" positions, preserving positional order. Any flag
// other than "1" excludes the slot. Positions beyond the canonical list are
// ignored; prescriptions occasionally carry four-part codes and the extra
// position carries no slot to map to.
func Resolve(frequencyCode string) []Slot {
	parts := strings.Split(frequencyCode, "-")

	resolved := make([]Slot, 0, len(canonical))
	for i, flag := range parts {
		if i >= len(canonical) {
			break
		}
		if flag == "1" {
			resolved = append(resolved, canonical[i])
		}
	}

	return resolved
}
