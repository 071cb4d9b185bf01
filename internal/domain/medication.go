package domain

// Medication is the structured output of the prescription extraction step.
// It is immutable once scheduling begins.
type Medication struct {
	Name          string `json:"medicine"`
	FrequencyCode string `json:"frequency"`
	DurationDays  int    `json:"days"`
}

func (m Medication) Validate() error {
	if m.Name == "" {
		return ErrMedicationNameMissing
	}
	if m.FrequencyCode == "" {
		return ErrFrequencyCodeMissing
	}
	if m.DurationDays < 0 {
		return ErrNegativeDuration
	}
	return nil
}
