package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port            string
	UploadDir       string
	LogLevel        slog.Level
	DisplayTimezone string
	RefillHour      int

	Redis     *RedisConfig
	Queue     *QueueConfig
	TaskQueue TaskQueueConfig
	Notify    *NotifyConfig
	Extract   *ExtractConfig
	OCR       *OCRConfig
}

type TaskQueueConfig struct {
	GCloudProjectID  string
	GCloudLocationID string
	GCloudQueueID    string
	GCloudTargetURL  string

	MaxRetries int
}

func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	displayTZ := os.Getenv("DISPLAY_TIMEZONE")
	if displayTZ == "" {
		displayTZ = "Asia/Kolkata"
	}

	refillHour := 9
	if v := os.Getenv("REFILL_HOUR"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 || parsed > 23 {
			return nil, ErrInvalidRefillHour
		}
		refillHour = parsed
	}

	maxRetries := 3
	if v := os.Getenv("TASK_QUEUE_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxRetries = parsed
		}
	}

	redisConfig, err := LoadRedisConfig()
	if err != nil {
		return nil, err
	}

	queueConfig, err := LoadQueueConfig()
	if err != nil {
		return nil, err
	}

	extractConfig, err := LoadExtractConfig()
	if err != nil {
		return nil, err
	}

	ocrConfig, err := LoadOCRConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:            port,
		UploadDir:       uploadDir,
		LogLevel:        parseLogLevel(os.Getenv("LOG_LEVEL")),
		DisplayTimezone: displayTZ,
		RefillHour:      refillHour,
		Redis:           redisConfig,
		Queue:           queueConfig,
		TaskQueue: TaskQueueConfig{
			GCloudProjectID:  os.Getenv("GCLOUD_PROJECT_ID"),
			GCloudLocationID: os.Getenv("GCLOUD_LOCATION_ID"),
			GCloudQueueID:    os.Getenv("GCLOUD_QUEUE_ID"),
			GCloudTargetURL:  os.Getenv("GCLOUD_TARGET_URL"),

			MaxRetries: maxRetries,
		},
		Notify:  LoadNotifyConfig(),
		Extract: extractConfig,
		OCR:     ocrConfig,
	}, nil
}

// Location resolves the display timezone used for schedule arithmetic and
// notification rendering. A single fixed zone applies to all users.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DisplayTimezone)
	if err != nil {
		return nil, ErrInvalidTimezone
	}
	return loc, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return 0, ErrInvalidDuration
	}
	return parsed, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
