package jobqueue

import "errors"

var (
	ErrMalformedJobPayload = errors.New("malformed job payload")
	ErrInvalidEventData    = errors.New("invalid event data")
)
