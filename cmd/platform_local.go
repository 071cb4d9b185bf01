//go:build !gcloud

package main

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/mediware/smart-health-backend/internal/config"
	"github.com/mediware/smart-health-backend/internal/health"
	"github.com/mediware/smart-health-backend/internal/infra/jobqueue"
	"github.com/mediware/smart-health-backend/internal/observability/metrics"
	"github.com/mediware/smart-health-backend/internal/service/dispatch"
)

// initQueue builds the Redis-backed delayed queue and starts an in-process
// worker that drains due jobs into the handler. The worker stops when ctx is
// cancelled at shutdown.
func initQueue(
	ctx context.Context,
	cfg *config.Config,
	redisClient *redis.Client,
	m *metrics.DispatchMetrics,
	handler jobqueue.Handler,
) (jobqueue.Queue, health.PendingCounter, func() error, error) {
	queue := jobqueue.NewRedisQueue(redisClient, cfg.Queue, m)
	worker := jobqueue.NewWorker(queue, handler, cfg.Queue, m)

	go func() {
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("queue worker exited", slog.String("error", err.Error()))
		}
	}()

	slog.Info("job queue initialized",
		slog.String("type", "redis"),
		slog.String("key_prefix", cfg.Queue.KeyPrefix),
		slog.Duration("poll_interval", cfg.Queue.PollInterval),
	)

	return queue, queue, nil, nil
}

// registerPlatformRoutes is a no-op locally; due jobs are delivered by the
// in-process worker, not by HTTP callbacks.
func registerPlatformRoutes(_ *gin.Engine, _ *dispatch.Dispatcher) {}
