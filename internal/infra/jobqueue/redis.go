package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mediware/smart-health-backend/internal/config"
	"github.com/mediware/smart-health-backend/internal/domain"
	"github.com/mediware/smart-health-backend/internal/observability/metrics"
)

// claimDueScript atomically moves due members from the scheduled set to the
// processing set, stamping each with the claim time so stale claims can be
// detected. Returns the claimed job IDs.
var claimDueScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, id in ipairs(due) do
	redis.call('ZREM', KEYS[1], id)
	redis.call('ZADD', KEYS[2], ARGV[3], id)
end
return due
`)

// reclaimStaleScript returns processing members claimed before the cutoff to
// the scheduled set as immediately due.
var reclaimStaleScript = redis.NewScript(`
local stale = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, id in ipairs(stale) do
	redis.call('ZREM', KEYS[1], id)
	redis.call('ZADD', KEYS[2], ARGV[3], id)
end
return stale
`)

// RedisQueue is a durable delayed job queue over Redis, modeled on the
// scheduled/processing/dead key split of Bull-style queues: a ZSET orders
// pending jobs by due time, claimed jobs park in a second ZSET until
// acknowledged, and permanently failed jobs land in a dead-letter list.
type RedisQueue struct {
	client  *redis.Client
	cfg     *config.QueueConfig
	metrics *metrics.DispatchMetrics
	now     func() time.Time

	keyJobPrefix  string
	keyScheduled  string
	keyProcessing string
	keyDead       string
}

func NewRedisQueue(client *redis.Client, cfg *config.QueueConfig, m *metrics.DispatchMetrics) *RedisQueue {
	return &RedisQueue{
		client:  client,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,

		keyJobPrefix:  cfg.KeyPrefix + ":job:",
		keyScheduled:  cfg.KeyPrefix + ":scheduled",
		keyProcessing: cfg.KeyPrefix + ":processing",
		keyDead:       cfg.KeyPrefix + ":dead",
	}
}

// Submit enqueues the event to fire no earlier than now+delay. A negative
// delay is treated as due immediately; the job is still submitted.
func (q *RedisQueue) Submit(ctx context.Context, event domain.ScheduledEvent, delay time.Duration) error {
	if !event.Kind.Valid() {
		return ErrInvalidEventData
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if delay < 0 {
		delay = 0
	}

	now := q.now()
	record := jobRecord{
		ID:          event.ID,
		Event:       event,
		Attempts:    0,
		SubmittedAt: now,
		DueAt:       now.Add(delay),
	}

	data, err := json.Marshal(record)
	if err != nil {
		return ErrInvalidEventData
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.keyJobPrefix+record.ID, data, 0)
	pipe.ZAdd(ctx, q.keyScheduled, redis.Z{
		Score:  float64(record.DueAt.UnixMilli()),
		Member: record.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to submit job: %w", err)
	}

	if q.metrics != nil {
		q.metrics.RecordJobSubmitted(ctx, event.Kind.String())
	}

	slog.DebugContext(ctx, "job waiting",
		slog.String("event", "queue.job.waiting"),
		slog.String("job_id", record.ID),
		slog.String("kind", event.Kind.String()),
		slog.Time("due_at", record.DueAt),
	)

	return nil
}

// PendingCount reports how many jobs are waiting for their due time.
func (q *RedisQueue) PendingCount(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.keyScheduled).Result()
}

// claimDue claims up to the configured batch of due jobs. Records that fail
// to load are handled inline: vanished records are dropped from the
// processing set, malformed ones are dead-lettered without retry.
func (q *RedisQueue) claimDue(ctx context.Context) ([]jobRecord, error) {
	now := q.now()

	ids, err := claimDueScript.Run(ctx, q.client,
		[]string{q.keyScheduled, q.keyProcessing},
		now.UnixMilli(), q.cfg.ClaimBatch, now.UnixMilli(),
	).StringSlice()
	if err != nil {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}

	records := make([]jobRecord, 0, len(ids))
	for _, id := range ids {
		record, err := q.loadJob(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrJobNotFound) {
				q.client.ZRem(ctx, q.keyProcessing, id)
				continue
			}
			if errors.Is(err, ErrMalformedJobPayload) {
				q.buryRaw(ctx, id, "malformed payload")
				continue
			}
			return records, err
		}
		records = append(records, record)
	}

	return records, nil
}

// reclaimStale requeues jobs whose claim outlived the visibility timeout,
// covering workers that died mid-dispatch. The handler must tolerate the
// resulting at-least-once delivery.
func (q *RedisQueue) reclaimStale(ctx context.Context) error {
	now := q.now()
	cutoff := now.Add(-q.cfg.VisibilityTimeout)

	ids, err := reclaimStaleScript.Run(ctx, q.client,
		[]string{q.keyProcessing, q.keyScheduled},
		cutoff.UnixMilli(), q.cfg.ClaimBatch, now.UnixMilli(),
	).StringSlice()
	if err != nil {
		return fmt.Errorf("failed to reclaim stale jobs: %w", err)
	}

	for _, id := range ids {
		slog.WarnContext(ctx, "requeued stale job claim",
			slog.String("event", "queue.job.reclaimed"),
			slog.String("job_id", id),
		)
	}

	return nil
}

func (q *RedisQueue) loadJob(ctx context.Context, id string) (jobRecord, error) {
	data, err := q.client.Get(ctx, q.keyJobPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobRecord{}, domain.ErrJobNotFound
		}
		return jobRecord{}, err
	}

	var record jobRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return jobRecord{}, ErrMalformedJobPayload
	}
	if !record.Event.Kind.Valid() && record.Event.Kind != "" {
		// Unrecognized kinds are the dispatcher's concern, not the queue's.
		// Only structurally broken records are rejected here.
		slog.DebugContext(ctx, "claimed job with unrecognized kind",
			slog.String("job_id", id),
			slog.String("kind", record.Event.Kind.String()),
		)
	}

	return record, nil
}

// complete acknowledges a handled job and removes all trace of it.
func (q *RedisQueue) complete(ctx context.Context, job jobRecord) error {
	pipe := q.client.TxPipeline()
	pipe.ZRem(ctx, q.keyProcessing, job.ID)
	pipe.Del(ctx, q.keyJobPrefix+job.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// retryOrBury reschedules a failed job with exponential backoff, or moves it
// to the dead-letter list once the attempt budget is spent.
func (q *RedisQueue) retryOrBury(ctx context.Context, job jobRecord, cause error) error {
	job.Attempts++

	if job.Attempts >= q.cfg.MaxAttempts {
		return q.bury(ctx, job, cause.Error())
	}

	backoff := q.cfg.RetryBackoff << (job.Attempts - 1)
	job.DueAt = q.now().Add(backoff)

	data, err := json.Marshal(job)
	if err != nil {
		return q.bury(ctx, job, "failed to re-encode job: "+err.Error())
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.keyJobPrefix+job.ID, data, 0)
	pipe.ZRem(ctx, q.keyProcessing, job.ID)
	pipe.ZAdd(ctx, q.keyScheduled, redis.Z{
		Score:  float64(job.DueAt.UnixMilli()),
		Member: job.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to reschedule job: %w", err)
	}

	if q.metrics != nil {
		q.metrics.RecordJobRetried(ctx, job.Event.Kind.String())
	}

	slog.WarnContext(ctx, "job retry scheduled",
		slog.String("event", "queue.job.retry"),
		slog.String("job_id", job.ID),
		slog.Int("attempt", job.Attempts),
		slog.Duration("backoff", backoff),
		slog.String("error", cause.Error()),
	)

	return nil
}

func (q *RedisQueue) bury(ctx context.Context, job jobRecord, reason string) error {
	dead := deadLetterRecord{
		Job:      job,
		Reason:   reason,
		FailedAt: q.now(),
	}

	data, err := json.Marshal(dead)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"job":{"id":%q},"reason":%q}`, job.ID, reason))
	}

	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.keyDead, data)
	pipe.ZRem(ctx, q.keyProcessing, job.ID)
	pipe.Del(ctx, q.keyJobPrefix+job.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to dead-letter job: %w", err)
	}

	slog.ErrorContext(ctx, "job dead-lettered",
		slog.String("event", "queue.job.dead"),
		slog.String("job_id", job.ID),
		slog.Int("attempts", job.Attempts),
		slog.String("reason", reason),
	)

	return nil
}

// buryRaw dead-letters a job whose record could not be decoded at all.
func (q *RedisQueue) buryRaw(ctx context.Context, id, reason string) {
	raw, _ := q.client.Get(ctx, q.keyJobPrefix+id).Result()

	dead, err := json.Marshal(map[string]any{
		"job_id":    id,
		"raw":       raw,
		"reason":    reason,
		"failed_at": q.now(),
	})
	if err != nil {
		dead = []byte(fmt.Sprintf(`{"job_id":%q,"reason":%q}`, id, reason))
	}

	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.keyDead, dead)
	pipe.ZRem(ctx, q.keyProcessing, id)
	pipe.Del(ctx, q.keyJobPrefix+id)

	if _, err := pipe.Exec(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to dead-letter malformed job",
			slog.String("job_id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	slog.ErrorContext(ctx, "malformed job dead-lettered",
		slog.String("event", "queue.job.dead"),
		slog.String("job_id", id),
		slog.String("reason", reason),
	)
}
