package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaBatchConsumer pulls batches from one topic with manual offset
// acknowledgement: offsets move only when Commit is called, so an
// unacknowledged batch is redelivered after a restart.
type KafkaBatchConsumer struct {
	reader *kafka.Reader
}

func NewKafkaBatchConsumer(brokers []string, groupID, topic string) (*KafkaBatchConsumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires group id")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer requires a topic")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &KafkaBatchConsumer{reader: reader}, nil
}

// FetchBatch blocks up to maxWait for the first message, then drains quickly
// up to max messages. Fetched offsets are not committed here.
func (c *KafkaBatchConsumer) FetchBatch(ctx context.Context, max int, maxWait time.Duration) ([]kafka.Message, error) {
	if max <= 0 {
		max = 1
	}
	out := make([]kafka.Message, 0, max)
	wait := maxWait
	for len(out) < max {
		fetchCtx, cancel := context.WithTimeout(ctx, wait)
		msg, err := c.reader.FetchMessage(fetchCtx)
		cancel()
		if err != nil {
			switch {
			case errors.Is(err, context.DeadlineExceeded):
				return out, nil
			case errors.Is(err, context.Canceled):
				return out, ctx.Err()
			default:
				return out, err
			}
		}
		out = append(out, msg)
		wait = 250 * time.Millisecond
	}
	return out, nil
}

func (c *KafkaBatchConsumer) Commit(ctx context.Context, msgs ...kafka.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return c.reader.CommitMessages(ctx, msgs...)
}

func (c *KafkaBatchConsumer) Close() error {
	return c.reader.Close()
}
