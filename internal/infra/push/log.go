package push

import (
	"context"
	"log/slog"
)

// LogSender stands in for FCM when no credentials are configured. Every send
// succeeds and is logged, so the full pipeline stays exercisable locally.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(ctx context.Context, token, title, body string) error {
	slog.InfoContext(ctx, "push notification (log only)",
		slog.String("event", "push.log_only"),
		slog.String("token", token),
		slog.String("title", title),
		slog.String("body", body),
	)
	return nil
}
