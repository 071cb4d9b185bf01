//go:build gcloud

package main

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mediware/smart-health-backend/internal/config"
	"github.com/mediware/smart-health-backend/internal/handler"
	"github.com/mediware/smart-health-backend/internal/health"
	"github.com/mediware/smart-health-backend/internal/infra/jobqueue"
	"github.com/mediware/smart-health-backend/internal/observability/metrics"
	"github.com/mediware/smart-health-backend/internal/service/dispatch"
)

// initQueue builds the Cloud Tasks queue. Due jobs come back as HTTP POSTs
// to the dispatch callback route instead of through an in-process worker, so
// no pending counter is available on this platform.
func initQueue(
	ctx context.Context,
	cfg *config.Config,
	_ *redis.Client,
	_ *metrics.DispatchMetrics,
	_ jobqueue.Handler,
) (jobqueue.Queue, health.PendingCounter, func() error, error) {
	queue, err := jobqueue.NewCloudTasksQueue(ctx, cfg.TaskQueue)
	if err != nil {
		return nil, nil, nil, err
	}

	slog.Info("job queue initialized",
		slog.String("type", "cloud_tasks"),
		slog.String("project", cfg.TaskQueue.GCloudProjectID),
		slog.String("location", cfg.TaskQueue.GCloudLocationID),
		slog.String("queue", cfg.TaskQueue.GCloudQueueID),
	)

	return queue, nil, queue.Close, nil
}

// registerPlatformRoutes mounts the Cloud Tasks callback endpoint that
// GCLOUD_TARGET_URL must point at.
func registerPlatformRoutes(r *gin.Engine, dispatcher *dispatch.Dispatcher) {
	dispatchHandler := handler.NewDispatchHandler(dispatcher)
	r.POST("/internal/dispatch", dispatchHandler.HandleDispatch)
}
