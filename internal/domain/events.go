package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventProductViewed  EventType = "product.viewed"
	EventProductLiked   EventType = "product.liked"
	EventProductUnliked EventType = "product.unliked"
	EventOrderPaid      EventType = "order.paid"
	EventOrderCancelled EventType = "order.cancelled"
	EventStockDepleted  EventType = "product.stock_depleted"
)

func (t EventType) String() string { return string(t) }

// Envelope is the wire shape shared by every topic. Only event_id and
// occurred_at are load-bearing for the pipeline; data is family-specific.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     EventType       `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SourceService string          `json:"source_service,omitempty"`
	SchemaVersion string          `json:"schema_version,omitempty"`
	PartitionKey  string          `json:"partition_key,omitempty"`
	Data          json.RawMessage `json:"data"`
}

type Event interface {
	Kind() EventType
	At() time.Time
}

type ProductViewed struct {
	ProductID  string    `json:"product_id"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"-"`
}

func (e ProductViewed) Kind() EventType { return EventProductViewed }
func (e ProductViewed) At() time.Time   { return e.OccurredAt }

type ProductLiked struct {
	ProductID  string    `json:"product_id"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"-"`
}

func (e ProductLiked) Kind() EventType { return EventProductLiked }
func (e ProductLiked) At() time.Time   { return e.OccurredAt }

type ProductUnliked struct {
	ProductID  string    `json:"product_id"`
	UserID     string    `json:"user_id,omitempty"`
	OccurredAt time.Time `json:"-"`
}

func (e ProductUnliked) Kind() EventType { return EventProductUnliked }
func (e ProductUnliked) At() time.Time   { return e.OccurredAt }

type OrderLineItem struct {
	ProductID string          `json:"product_id"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
}

type OrderPaid struct {
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Items      []OrderLineItem `json:"items"`
	OccurredAt time.Time       `json:"-"`
}

func (e OrderPaid) Kind() EventType { return EventOrderPaid }
func (e OrderPaid) At() time.Time   { return e.OccurredAt }

type OrderCancelled struct {
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	Items      []OrderLineItem `json:"items"`
	OccurredAt time.Time       `json:"-"`
}

func (e OrderCancelled) Kind() EventType { return EventOrderCancelled }
func (e OrderCancelled) At() time.Time   { return e.OccurredAt }

type StockDepleted struct {
	ProductID  string    `json:"product_id"`
	OccurredAt time.Time `json:"-"`
}

func (e StockDepleted) Kind() EventType { return EventStockDepleted }
func (e StockDepleted) At() time.Time   { return e.OccurredAt }

type decodeFunc func(data json.RawMessage, occurredAt time.Time) (Event, error)

// decoders is the explicit dispatch table from event type to payload decoder.
// Adding an event family means adding exactly one row here.
var decoders = map[EventType]decodeFunc{
	EventProductViewed: func(data json.RawMessage, at time.Time) (Event, error) {
		var e ProductViewed
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		e.OccurredAt = at
		return e, nil
	},
	EventProductLiked: func(data json.RawMessage, at time.Time) (Event, error) {
		var e ProductLiked
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		e.OccurredAt = at
		return e, nil
	},
	EventProductUnliked: func(data json.RawMessage, at time.Time) (Event, error) {
		var e ProductUnliked
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		e.OccurredAt = at
		return e, nil
	},
	EventOrderPaid: func(data json.RawMessage, at time.Time) (Event, error) {
		var e OrderPaid
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		e.OccurredAt = at
		return e, nil
	},
	EventOrderCancelled: func(data json.RawMessage, at time.Time) (Event, error) {
		var e OrderCancelled
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		e.OccurredAt = at
		return e, nil
	},
	EventStockDepleted: func(data json.RawMessage, at time.Time) (Event, error) {
		var e StockDepleted
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, err
		}
		e.OccurredAt = at
		return e, nil
	},
}

// DecodeEnvelope parses a raw message payload into its typed event.
func DecodeEnvelope(payload []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if env.OccurredAt.IsZero() {
		return env, nil, fmt.Errorf("%w: missing occurred_at", ErrMalformedEvent)
	}
	decode, ok := decoders[env.EventType]
	if !ok {
		return env, nil, fmt.Errorf("%w: %s", ErrUnknownEventType, env.EventType)
	}
	event, err := decode(env.Data, env.OccurredAt.UTC())
	if err != nil {
		return env, nil, fmt.Errorf("%w: decode %s: %v", ErrMalformedEvent, env.EventType, err)
	}
	return env, event, nil
}
