package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher stands in when no brokers are configured, so local runs
// still exercise the full outbox path.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType, eventID string, payload []byte, partitionKey string) error {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_type", eventType,
		"event_id", eventID,
		"partition_key", partitionKey,
		"payload_bytes", len(payload),
	)
	return nil
}
