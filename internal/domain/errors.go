package domain

import "errors"

var (
	ErrNoToken               = errors.New("no token provided")
	ErrMedicationNameMissing = errors.New("medication name missing")
	ErrFrequencyCodeMissing  = errors.New("frequency code missing")
	ErrNegativeDuration      = errors.New("duration days must not be negative")
	ErrUnknownEventKind      = errors.New("unknown notification type")
	ErrJobNotFound           = errors.New("job not found")
)
