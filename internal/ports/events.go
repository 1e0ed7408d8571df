package ports

import "context"

type EventPublisher interface {
	// Publish sends one event to the topic mapped from its type, keyed by
	// partitionKey so per-aggregate ordering holds, with eventID carried as a
	// message header for downstream deduplication.
	Publish(ctx context.Context, eventType, eventID string, payload []byte, partitionKey string) error
}
