package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Weights holds the configurable score contribution per event family.
// All weights are non-negative; the sign of a contribution comes from the
// event-type branch (unlike negates like, cancel negates paid), never from
// a negative weight value.
type Weights struct {
	View  decimal.Decimal
	Like  decimal.Decimal
	Order decimal.Decimal
}

func (w Weights) Validate() error {
	if w.View.IsNegative() {
		return fmt.Errorf("%w: view weight %s is negative", ErrInvalidWeights, w.View)
	}
	if w.Like.IsNegative() {
		return fmt.Errorf("%w: like weight %s is negative", ErrInvalidWeights, w.Like)
	}
	if w.Order.IsNegative() {
		return fmt.Errorf("%w: order weight %s is negative", ErrInvalidWeights, w.Order)
	}
	return nil
}

// ScoreEntry is one signed increment for a product, bound to the hour the
// triggering event occurred in. It is never persisted as a row.
type ScoreEntry struct {
	ProductID  string
	OccurredAt time.Time
	Score      decimal.Decimal
}

// Calculator maps events to signed score contributions. Pure: no I/O, no
// clock reads, deterministic for a given weight table.
type Calculator struct {
	weights Weights
}

func NewCalculator(weights Weights) (*Calculator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{weights: weights}, nil
}

// Score returns the contributions an event makes. View/like/unlike events
// yield a single entry; order events yield one entry per line item. Stock
// depletion carries no score delta (the aggregator handles exclusion).
func (c *Calculator) Score(event Event) []ScoreEntry {
	switch e := event.(type) {
	case ProductViewed:
		return []ScoreEntry{{ProductID: e.ProductID, OccurredAt: e.OccurredAt, Score: c.weights.View}}
	case ProductLiked:
		return []ScoreEntry{{ProductID: e.ProductID, OccurredAt: e.OccurredAt, Score: c.weights.Like}}
	case ProductUnliked:
		return []ScoreEntry{{ProductID: e.ProductID, OccurredAt: e.OccurredAt, Score: c.weights.Like.Neg()}}
	case OrderPaid:
		return c.orderEntries(e.Items, e.OccurredAt, false)
	case OrderCancelled:
		return c.orderEntries(e.Items, e.OccurredAt, true)
	case StockDepleted:
		return nil
	default:
		return nil
	}
}

// orderEntries apportions the order weight across line items proportionally
// to unit_price x quantity. A cancellation replays the identical paid
// computation and negates it, so paid+cancelled nets to exactly zero per
// line item regardless of rounding.
func (c *Calculator) orderEntries(items []OrderLineItem, at time.Time, negate bool) []ScoreEntry {
	if len(items) == 0 {
		return nil
	}
	lineValues := make([]decimal.Decimal, len(items))
	total := decimal.Zero
	for i, item := range items {
		lineValues[i] = item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity))
		total = total.Add(lineValues[i])
	}
	equalShare := decimal.NewFromInt(1).Div(decimal.NewFromInt(int64(len(items))))
	entries := make([]ScoreEntry, 0, len(items))
	for i, item := range items {
		share := equalShare
		if total.IsPositive() {
			share = lineValues[i].Div(total)
		}
		score := c.weights.Order.Mul(share)
		if negate {
			score = score.Neg()
		}
		entries = append(entries, ScoreEntry{ProductID: item.ProductID, OccurredAt: at, Score: score})
	}
	return entries
}
