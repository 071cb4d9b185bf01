package main

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"

	"github.com/mediware/smart-health-backend/internal/config"
	"github.com/mediware/smart-health-backend/internal/handler"
	"github.com/mediware/smart-health-backend/internal/health"
	"github.com/mediware/smart-health-backend/internal/infra/deliveryrecorder"
	"github.com/mediware/smart-health-backend/internal/infra/extract"
	"github.com/mediware/smart-health-backend/internal/infra/ocr"
	"github.com/mediware/smart-health-backend/internal/infra/push"
	"github.com/mediware/smart-health-backend/internal/observability"
	"github.com/mediware/smart-health-backend/internal/observability/logging"
	"github.com/mediware/smart-health-backend/internal/observability/metrics"
	"github.com/mediware/smart-health-backend/internal/registry"
	"github.com/mediware/smart-health-backend/internal/service/dispatch"
	"github.com/mediware/smart-health-backend/internal/service/schedule"
)

const serviceName = "smart-health-backend"

// Version is set via ldflags at build time
var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		return 1
	}

	logging.Setup(cfg.LogLevel, serviceName, Version)

	if err := config.ValidateForRun(cfg); err != nil {
		slog.Error("configuration validation error", slog.String("error", err.Error()))
		return 1
	}

	if err := cfg.TaskQueue.Validate(); err != nil {
		slog.Error("task queue configuration error", slog.String("error", err.Error()))
		return 1
	}

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("invalid display timezone",
			slog.String("timezone", cfg.DisplayTimezone),
			slog.String("error", err.Error()),
		)
		return 1
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceName: serviceName,
		Version:     Version,
	})
	if err != nil {
		slog.Error("failed to initialize observability", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obs.Shutdown(shutdownCtx); err != nil {
			slog.Warn("observability shutdown error", slog.String("error", err.Error()))
		}
	}()

	dispatchMetrics, err := metrics.NewDispatchMetrics()
	if err != nil {
		slog.Error("failed to initialize dispatch metrics", slog.String("error", err.Error()))
		return 1
	}

	// Delivery result recorder (InfluxDB for local, BigQuery for gcloud)
	recorder, err := deliveryrecorder.NewRecorder(ctx, deliveryrecorder.LoadConfig())
	if err != nil {
		slog.Error("failed to initialize delivery recorder", slog.String("error", err.Error()))
		return 1
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			slog.Warn("failed to close delivery recorder", slog.String("error", err.Error()))
		}
	}()

	redisOpts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	if cfg.Redis.TLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)

	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		slog.Error("failed to instrument redis tracing",
			slog.String("event", "redis.otel.tracing.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	if err := redisotel.InstrumentMetrics(redisClient); err != nil {
		slog.Error("failed to instrument redis metrics",
			slog.String("event", "redis.otel.metrics.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}

	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect redis",
			slog.String("event", "redis.connect.fail"),
			slog.String("error", err.Error()),
		)
		return 1
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", slog.String("error", err.Error()))
		}
	}()

	slog.Info("redis connected",
		slog.String("addr", cfg.Redis.Addr),
	)

	tokenRegistry := registry.New()

	var sender push.Sender
	if cfg.Notify.FCMCredentialsFile != "" {
		fcmSender, err := push.NewFCMSender(ctx, cfg.Notify.FCMCredentialsFile)
		if err != nil {
			slog.Error("failed to initialize FCM sender", slog.String("error", err.Error()))
			return 1
		}
		sender = fcmSender
		slog.Info("push sender initialized", slog.String("type", "fcm"))
	} else {
		sender = push.NewLogSender()
		slog.Warn("FCM_CREDENTIALS_FILE not set, notifications will only be logged")
	}

	renderer := dispatch.NewRenderer(loc)
	dispatcher := dispatch.NewDispatcher(tokenRegistry, sender, renderer, dispatchMetrics, recorder)

	queue, pending, queueCleanup, err := initQueue(ctx, cfg, redisClient, dispatchMetrics, dispatcher.HandleJob)
	if err != nil {
		slog.Error("failed to initialize job queue", slog.String("error", err.Error()))
		return 1
	}
	if queueCleanup != nil {
		defer func() {
			if err := queueCleanup(); err != nil {
				slog.Warn("job queue cleanup error", slog.String("error", err.Error()))
			}
		}()
	}

	scheduler := schedule.NewScheduler(schedule.NewExpander(loc, cfg.RefillHour), queue)

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		slog.Error("failed to create upload directory",
			slog.String("dir", cfg.UploadDir),
			slog.String("error", err.Error()),
		)
		return 1
	}

	ocrEngine := ocr.NewTesseractEngine(cfg.OCR)
	extractor := extract.NewSubprocessExtractor(cfg.Extract)

	tokenHandler := handler.NewTokenHandler(tokenRegistry, dispatchMetrics)
	prescriptionHandler := handler.NewPrescriptionHandler(ocrEngine, extractor, scheduler, cfg.UploadDir)

	r := gin.New()
	r.Use(gin.Recovery())

	healthChecker := health.NewChecker(redisClient, pending, Version)
	r.GET("/health/live", healthChecker.LiveHandler())
	r.GET("/health/ready", healthChecker.ReadyHandler())
	r.GET("/health", healthChecker.ReadyHandler())

	r.POST("/fcm/register-token", tokenHandler.HandleRegisterToken)

	api := r.Group("/api")
	{
		api.GET("/prescriptions", prescriptionHandler.HandleRoot)
		api.POST("/prescriptions/upload", prescriptionHandler.HandleUpload)
	}

	r.Static("/uploads", cfg.UploadDir)

	registerPlatformRoutes(r, dispatcher)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Port),
			slog.String("display_timezone", cfg.DisplayTimezone),
			slog.Int("refill_hour", cfg.RefillHour),
		)
		serverErr <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown server", slog.String("error", err.Error()))
			return 1
		}

		slog.Info("server exited properly")
		return 0

	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return 0
		}
		slog.Error("server exited with error", slog.String("error", err.Error()))
		return 1
	}
}
