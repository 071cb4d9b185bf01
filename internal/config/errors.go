package config

import "errors"

var (
	ErrRedisAddrMissing      = errors.New("REDIS_ADDR is required")
	ErrInvalidRedisDB        = errors.New("REDIS_DB must be a valid integer")
	ErrInvalidRefillHour     = errors.New("REFILL_HOUR must be an hour between 0 and 23")
	ErrInvalidTimezone       = errors.New("DISPLAY_TIMEZONE is not a valid IANA timezone")
	ErrInvalidDuration       = errors.New("duration values must be positive Go durations, e.g. 30s")
	ErrExtractCommandMissing = errors.New("EXTRACT_COMMAND must name a command")
)
