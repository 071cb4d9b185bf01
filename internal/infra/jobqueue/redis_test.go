package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mediware/smart-health-backend/internal/config"
	"github.com/mediware/smart-health-backend/internal/domain"
	"github.com/mediware/smart-health-backend/internal/testutil"
)

func testQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		KeyPrefix:         "test-reminders",
		PollInterval:      50 * time.Millisecond,
		ClaimBatch:        32,
		MaxAttempts:       3,
		RetryBackoff:      5 * time.Second,
		VisibilityTimeout: 60 * time.Second,
	}
}

func setupQueue(t *testing.T) (*RedisQueue, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	client, cleanup := testutil.SetupRedisContainer(ctx, t)
	t.Cleanup(cleanup)

	return NewRedisQueue(client, testQueueConfig(), nil), ctx
}

func testEvent(id string) domain.ScheduledEvent {
	return domain.ScheduledEvent{
		ID:           id,
		Kind:         domain.EventKindDose,
		MedicineName: "Amoxicillin",
		FireAt:       time.Now().Add(time.Hour),
	}
}

func TestSubmitPersistsJob(t *testing.T) {
	q, ctx := setupQueue(t)

	if err := q.Submit(ctx, testEvent("job-1"), time.Hour); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	count, err := q.PendingCount(ctx)
	if err != nil {
		t.Fatalf("pending count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d pending jobs, want 1", count)
	}

	data, err := q.client.Get(ctx, q.keyJobPrefix+"job-1").Bytes()
	if err != nil {
		t.Fatalf("job record missing: %v", err)
	}
	var record jobRecord
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("job record not decodable: %v", err)
	}
	if record.Event.MedicineName != "Amoxicillin" || record.Attempts != 0 {
		t.Errorf("unexpected record: %+v", record)
	}
}

func TestSubmitRejectsInvalidKind(t *testing.T) {
	q, ctx := setupQueue(t)

	event := testEvent("job-1")
	event.Kind = domain.EventKind("snooze")

	if err := q.Submit(ctx, event, 0); !errors.Is(err, ErrInvalidEventData) {
		t.Fatalf("got %v, want ErrInvalidEventData", err)
	}
}

func TestClaimOnlyDueJobs(t *testing.T) {
	q, ctx := setupQueue(t)

	base := time.Now()
	q.now = func() time.Time { return base }

	if err := q.Submit(ctx, testEvent("due-now"), 0); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := q.Submit(ctx, testEvent("due-later"), time.Hour); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	jobs, err := q.claimDue(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "due-now" {
		t.Fatalf("got jobs %+v, want only due-now", jobs)
	}

	// Advancing past the future due time makes the second job claimable.
	q.now = func() time.Time { return base.Add(2 * time.Hour) }
	jobs, err = q.claimDue(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "due-later" {
		t.Fatalf("got jobs %+v, want only due-later", jobs)
	}
}

func TestClaimedJobIsNotReclaimedImmediately(t *testing.T) {
	q, ctx := setupQueue(t)

	if err := q.Submit(ctx, testEvent("job-1"), 0); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	jobs, err := q.claimDue(ctx)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("claim failed: jobs=%v err=%v", jobs, err)
	}

	// A second claim pass must not see the job while it is processing.
	jobs, err = q.claimDue(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("double-claimed jobs: %+v", jobs)
	}

	if err := q.reclaimStale(ctx); err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}
	jobs, err = q.claimDue(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("reclaimed a fresh claim: %+v", jobs)
	}
}

func TestReclaimAfterVisibilityTimeout(t *testing.T) {
	q, ctx := setupQueue(t)

	base := time.Now()
	q.now = func() time.Time { return base }

	if err := q.Submit(ctx, testEvent("job-1"), 0); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if jobs, err := q.claimDue(ctx); err != nil || len(jobs) != 1 {
		t.Fatalf("claim failed: jobs=%v err=%v", jobs, err)
	}

	// Simulate a worker dying mid-dispatch: the claim outlives the
	// visibility timeout and must come back.
	q.now = func() time.Time { return base.Add(q.cfg.VisibilityTimeout + time.Second) }

	if err := q.reclaimStale(ctx); err != nil {
		t.Fatalf("reclaim failed: %v", err)
	}

	jobs, err := q.claimDue(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-1" {
		t.Fatalf("got jobs %+v, want reclaimed job-1", jobs)
	}
}

func TestCompleteRemovesJob(t *testing.T) {
	q, ctx := setupQueue(t)

	if err := q.Submit(ctx, testEvent("job-1"), 0); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	jobs, err := q.claimDue(ctx)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("claim failed: jobs=%v err=%v", jobs, err)
	}

	if err := q.complete(ctx, jobs[0]); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if exists, _ := q.client.Exists(ctx, q.keyJobPrefix+"job-1").Result(); exists != 0 {
		t.Error("job record survived completion")
	}
	if card, _ := q.client.ZCard(ctx, q.keyProcessing).Result(); card != 0 {
		t.Error("processing set not empty after completion")
	}
}

func TestRetryBackoffAndDeadLetter(t *testing.T) {
	q, ctx := setupQueue(t)

	base := time.Now()
	q.now = func() time.Time { return base }

	if err := q.Submit(ctx, testEvent("job-1"), 0); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	cause := errors.New("fcm unavailable")

	// First failure: rescheduled with the base backoff.
	jobs, err := q.claimDue(ctx)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("claim failed: jobs=%v err=%v", jobs, err)
	}
	if err := q.retryOrBury(ctx, jobs[0], cause); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	score, err := q.client.ZScore(ctx, q.keyScheduled, "job-1").Result()
	if err != nil {
		t.Fatalf("job missing from scheduled set: %v", err)
	}
	wantDue := base.Add(q.cfg.RetryBackoff).UnixMilli()
	if int64(score) != wantDue {
		t.Errorf("got due %d, want %d", int64(score), wantDue)
	}

	// Second failure: backoff doubles.
	q.now = func() time.Time { return base.Add(q.cfg.RetryBackoff) }
	jobs, err = q.claimDue(ctx)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("claim failed: jobs=%v err=%v", jobs, err)
	}
	if jobs[0].Attempts != 1 {
		t.Errorf("got attempts %d, want 1", jobs[0].Attempts)
	}
	if err := q.retryOrBury(ctx, jobs[0], cause); err != nil {
		t.Fatalf("retry failed: %v", err)
	}

	score, err = q.client.ZScore(ctx, q.keyScheduled, "job-1").Result()
	if err != nil {
		t.Fatalf("job missing from scheduled set: %v", err)
	}
	wantDue = base.Add(q.cfg.RetryBackoff).Add(2 * q.cfg.RetryBackoff).UnixMilli()
	if int64(score) != wantDue {
		t.Errorf("got due %d, want %d", int64(score), wantDue)
	}

	// Third failure exhausts the attempt budget: dead-lettered.
	q.now = func() time.Time { return base.Add(time.Hour) }
	jobs, err = q.claimDue(ctx)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("claim failed: jobs=%v err=%v", jobs, err)
	}
	if err := q.retryOrBury(ctx, jobs[0], cause); err != nil {
		t.Fatalf("bury failed: %v", err)
	}

	deadLen, err := q.client.LLen(ctx, q.keyDead).Result()
	if err != nil {
		t.Fatalf("dead-letter length failed: %v", err)
	}
	if deadLen != 1 {
		t.Fatalf("got %d dead-letter entries, want 1", deadLen)
	}

	raw, err := q.client.LIndex(ctx, q.keyDead, 0).Result()
	if err != nil {
		t.Fatalf("dead-letter read failed: %v", err)
	}
	var dead deadLetterRecord
	if err := json.Unmarshal([]byte(raw), &dead); err != nil {
		t.Fatalf("dead-letter record not decodable: %v", err)
	}
	if dead.Job.ID != "job-1" || dead.Job.Attempts != q.cfg.MaxAttempts {
		t.Errorf("unexpected dead-letter record: %+v", dead)
	}
	if dead.Reason != cause.Error() {
		t.Errorf("got reason %q, want %q", dead.Reason, cause.Error())
	}

	if exists, _ := q.client.Exists(ctx, q.keyJobPrefix+"job-1").Result(); exists != 0 {
		t.Error("job record survived dead-lettering")
	}
}

func TestMalformedPayloadIsDeadLettered(t *testing.T) {
	q, ctx := setupQueue(t)

	now := time.Now()
	if err := q.client.Set(ctx, q.keyJobPrefix+"broken", "{not json", 0).Err(); err != nil {
		t.Fatalf("failed to plant broken record: %v", err)
	}
	if err := q.client.ZAdd(ctx, q.keyScheduled, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: "broken",
	}).Err(); err != nil {
		t.Fatalf("failed to schedule broken record: %v", err)
	}

	jobs, err := q.claimDue(ctx)
	if err != nil {
		t.Fatalf("claim failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("claimed malformed jobs: %+v", jobs)
	}

	deadLen, err := q.client.LLen(ctx, q.keyDead).Result()
	if err != nil {
		t.Fatalf("dead-letter length failed: %v", err)
	}
	if deadLen != 1 {
		t.Errorf("got %d dead-letter entries, want 1", deadLen)
	}
}

func TestWorkerDispatchesDueJob(t *testing.T) {
	q, ctx := setupQueue(t)

	handled := make(chan domain.ScheduledEvent, 1)
	handler := func(_ context.Context, event domain.ScheduledEvent) error {
		handled <- event
		return nil
	}

	worker := NewWorker(q, handler, q.cfg, nil)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(runCtx)
	}()

	if err := q.Submit(ctx, testEvent("job-1"), 0); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	select {
	case event := <-handled:
		if event.ID != "job-1" {
			t.Errorf("handled unexpected event: %+v", event)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("worker never handled the due job")
	}

	cancel()
	<-done
}
