package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cartloop/ranking-service/internal/domain"
	"github.com/cartloop/ranking-service/internal/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecordProductViewed writes the audit row and outbox row for a view event
// in one transaction; the publisher picks the event up asynchronously.
func (s *Service) RecordProductViewed(ctx context.Context, productID, userID string) error {
	if productID == "" {
		return fmt.Errorf("%w: product id required", domain.ErrInvalidInput)
	}
	return s.recordEvent(ctx, domain.EventProductViewed, "product", productID,
		domain.ProductViewed{ProductID: productID, UserID: userID})
}

func (s *Service) RecordProductLiked(ctx context.Context, productID, userID string) error {
	if productID == "" {
		return fmt.Errorf("%w: product id required", domain.ErrInvalidInput)
	}
	return s.recordEvent(ctx, domain.EventProductLiked, "product", productID,
		domain.ProductLiked{ProductID: productID, UserID: userID})
}

func (s *Service) RecordProductUnliked(ctx context.Context, productID, userID string) error {
	if productID == "" {
		return fmt.Errorf("%w: product id required", domain.ErrInvalidInput)
	}
	return s.recordEvent(ctx, domain.EventProductUnliked, "product", productID,
		domain.ProductUnliked{ProductID: productID, UserID: userID})
}

func (s *Service) RecordOrderPaid(ctx context.Context, orderID string, amount decimal.Decimal, items []domain.OrderLineItem) error {
	if orderID == "" || len(items) == 0 {
		return fmt.Errorf("%w: order id and items required", domain.ErrInvalidInput)
	}
	return s.recordEvent(ctx, domain.EventOrderPaid, "order", orderID,
		domain.OrderPaid{OrderID: orderID, Amount: amount, Items: items})
}

func (s *Service) RecordOrderCancelled(ctx context.Context, orderID string, amount decimal.Decimal, items []domain.OrderLineItem) error {
	if orderID == "" || len(items) == 0 {
		return fmt.Errorf("%w: order id and items required", domain.ErrInvalidInput)
	}
	return s.recordEvent(ctx, domain.EventOrderCancelled, "order", orderID,
		domain.OrderCancelled{OrderID: orderID, Amount: amount, Items: items})
}

func (s *Service) RecordStockDepleted(ctx context.Context, productID string) error {
	if productID == "" {
		return fmt.Errorf("%w: product id required", domain.ErrInvalidInput)
	}
	return s.recordEvent(ctx, domain.EventStockDepleted, "product", productID,
		domain.StockDepleted{ProductID: productID})
}

func (s *Service) recordEvent(ctx context.Context, eventType domain.EventType, aggregateType, aggregateID string, data any) error {
	occurredAt := s.nowFn()
	eventID := uuid.New()
	rawData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s data: %w", eventType, err)
	}
	envelope := domain.Envelope{
		EventID:       eventID.String(),
		EventType:     eventType,
		OccurredAt:    occurredAt,
		SourceService: s.cfg.ServiceName,
		SchemaVersion: "1.0",
		PartitionKey:  aggregateID,
		Data:          rawData,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}
	return s.eventLog.AppendWithOutbox(ctx,
		ports.ProductEventEntry{
			EventID:     eventID,
			EventType:   eventType.String(),
			AggregateID: aggregateID,
			Payload:     payload,
			OccurredAt:  occurredAt,
		},
		ports.OutboxEvent{
			EventID:       eventID,
			EventType:     eventType.String(),
			AggregateType: aggregateType,
			AggregateID:   aggregateID,
			PartitionKey:  aggregateID,
			Payload:       payload,
			OccurredAt:    occurredAt,
			SchemaVersion: "1.0",
		})
}
