package config

import (
	"os"
	"strconv"
	"time"
)

const (
	defaultPollInterval      = 1 * time.Second
	defaultClaimBatch        = 32
	defaultMaxAttempts       = 3
	defaultRetryBackoff      = 5 * time.Second
	defaultVisibilityTimeout = 60 * time.Second
	defaultKeyPrefix         = "reminders"
)

// QueueConfig controls the Redis delayed job queue and its worker: how often
// due jobs are polled, the bounded retry policy, and how long a claimed job
// may stay unacknowledged before it is requeued.
type QueueConfig struct {
	KeyPrefix         string
	PollInterval      time.Duration
	ClaimBatch        int
	MaxAttempts       int
	RetryBackoff      time.Duration
	VisibilityTimeout time.Duration
}

func LoadQueueConfig() (*QueueConfig, error) {
	pollInterval, err := getEnvDuration("QUEUE_POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return nil, err
	}

	retryBackoff, err := getEnvDuration("QUEUE_RETRY_BACKOFF", defaultRetryBackoff)
	if err != nil {
		return nil, err
	}

	visibilityTimeout, err := getEnvDuration("QUEUE_VISIBILITY_TIMEOUT", defaultVisibilityTimeout)
	if err != nil {
		return nil, err
	}

	claimBatch := defaultClaimBatch
	if v := os.Getenv("QUEUE_CLAIM_BATCH"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			claimBatch = parsed
		}
	}

	maxAttempts := defaultMaxAttempts
	if v := os.Getenv("QUEUE_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxAttempts = parsed
		}
	}

	return &QueueConfig{
		KeyPrefix:         getEnvOrDefault("QUEUE_KEY_PREFIX", defaultKeyPrefix),
		PollInterval:      pollInterval,
		ClaimBatch:        claimBatch,
		MaxAttempts:       maxAttempts,
		RetryBackoff:      retryBackoff,
		VisibilityTimeout: visibilityTimeout,
	}, nil
}
