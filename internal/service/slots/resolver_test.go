package slots

import (
	"testing"
	"time"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected []Slot
	}{
		{
			name:     "all slots",
			code:     "1-1-1",
			expected: []Slot{{8, 0}, {13, 0}, {20, 0}},
		},
		{
			name:     "morning and evening",
			code:     "1-0-1",
			expected: []Slot{{8, 0}, {20, 0}},
		},
		{
			name:     "midday only",
			code:     "0-1-0",
			expected: []Slot{{13, 0}},
		},
		{
			name:     "no slots",
			code:     "0-0-0",
			expected: []Slot{},
		},
		{
			name:     "short code",
			code:     "1",
			expected: []Slot{{8, 0}},
		},
		{
			name:     "empty code",
			code:     "",
			expected: []Slot{},
		},
		{
			name:     "extra positions ignored",
			code:     "1-0-1-1-1",
			expected: []Slot{{8, 0}, {20, 0}},
		},
		{
			name:     "non-binary flags excluded",
			code:     "2-x-1",
			expected: []Slot{{20, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.code)

			if len(got) != len(tt.expected) {
				t.Fatalf("got %d slots, want %d", len(got), len(tt.expected))
			}
			for i, slot := range got {
				if slot != tt.expected[i] {
					t.Errorf("slot[%d]: got %v, want %v", i, slot, tt.expected[i])
				}
			}
		})
	}
}

func TestResolveDoesNotMutateCanonical(t *testing.T) {
	before := Canonical()
	_ = Resolve("1-1-1")
	after := Canonical()

	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("canonical slot %d changed from %v to %v", i, before[i], after[i])
		}
	}
}

func TestSlotAt(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	ref := time.Date(2024, 1, 1, 23, 45, 12, 0, loc)
	got := Slot{Hour: 8, Minute: 0}.At(ref, loc)
	want := time.Date(2024, 1, 1, 8, 0, 0, 0, loc)

	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
