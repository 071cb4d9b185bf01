//go:build gcloud

package jobqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	taskspb "cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/mediware/smart-health-backend/internal/config"
	"github.com/mediware/smart-health-backend/internal/domain"
)

// CloudTasksQueue submits scheduled events as Cloud Tasks with a ScheduleTime,
// delivered back to the service's dispatch endpoint as HTTP POSTs. Retry and
// at-least-once semantics come from the Cloud Tasks queue itself.
type CloudTasksQueue struct {
	client     *cloudtasks.Client
	projectID  string
	locationID string
	queueID    string
	targetURL  string
	maxRetries int
	now        func() time.Time
}

func NewCloudTasksQueue(ctx context.Context, cfg config.TaskQueueConfig) (*CloudTasksQueue, error) {
	client, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud tasks client: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &CloudTasksQueue{
		client:     client,
		projectID:  cfg.GCloudProjectID,
		locationID: cfg.GCloudLocationID,
		queueID:    cfg.GCloudQueueID,
		targetURL:  cfg.GCloudTargetURL,
		maxRetries: maxRetries,
		now:        time.Now,
	}, nil
}

func (q *CloudTasksQueue) Submit(ctx context.Context, event domain.ScheduledEvent, delay time.Duration) error {
	if !event.Kind.Valid() {
		return ErrInvalidEventData
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if delay < 0 {
		delay = 0
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return ErrInvalidEventData
	}

	queuePath := fmt.Sprintf("projects/%s/locations/%s/queues/%s",
		q.projectID, q.locationID, q.queueID)
	taskName := fmt.Sprintf("%s/tasks/%s", queuePath, event.ID)

	task := &taskspb.Task{
		Name: taskName,
		MessageType: &taskspb.Task_HttpRequest{
			HttpRequest: &taskspb.HttpRequest{
				HttpMethod: taskspb.HttpMethod_POST,
				Url:        q.targetURL,
				Headers: map[string]string{
					"Content-Type": "application/json",
				},
				Body: payload,
			},
		},
		ScheduleTime: timestamppb.New(q.now().Add(delay)),
	}

	req := &taskspb.CreateTaskRequest{
		Parent: queuePath,
		Task:   task,
	}

	var lastErr error
	for attempt := 0; attempt < q.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * 100 * time.Millisecond
			slog.Debug("retrying task submission",
				slog.String("job_id", event.ID),
				slog.Int("attempt", attempt+1),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		created, err := q.client.CreateTask(ctx, req)
		if err == nil {
			slog.Info("job submitted to Cloud Tasks",
				slog.String("event", "queue.job.waiting"),
				slog.String("task_name", created.Name),
				slog.String("job_id", event.ID),
				slog.String("kind", event.Kind.String()),
			)
			return nil
		}

		// A task with this ID already exists: the job was submitted before;
		// resubmitting it would not change anything.
		if status.Code(err) == codes.AlreadyExists {
			slog.Debug("task already exists, treating submission as done",
				slog.String("job_id", event.ID),
			)
			return nil
		}

		slog.Warn("failed to create cloud task",
			slog.String("job_id", event.ID),
			slog.String("error", err.Error()),
		)
		lastErr = err
	}

	return fmt.Errorf("failed to submit job after %d retries: %w", q.maxRetries, lastErr)
}

func (q *CloudTasksQueue) Close() error {
	return q.client.Close()
}
