package logging

import (
	"log/slog"
	"os"
)

// Setup builds the process-wide JSON logger and installs it as the slog
// default.
func Setup(level slog.Level, serviceName, version string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", serviceName),
		slog.String("version", version),
	)
	slog.SetDefault(logger)

	return logger
}
