package notify

import (
	"context"
	"log/slog"
)

// SlogSink logs tasks instead of delivering them. Default for development
// and for deployments without Kafka configured.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Notify(ctx context.Context, task Task) error {
	s.logger.InfoContext(ctx, "notification",
		"recipient_id", task.RecipientID,
		"category", string(task.Category),
		"summary", task.Summary,
	)
	return nil
}
