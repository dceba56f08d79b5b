// Package events carries payment transitions to downstream consumers.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentEvent is emitted after a payment record changes status.
type PaymentEvent struct {
	PaymentID             string          `json:"payment_id"`
	PayerID               uint            `json:"payer_id"`
	Status                string          `json:"status"`
	PreviousStatus        string          `json:"previous_status"`
	Amount                decimal.Decimal `json:"amount"`
	Currency              string          `json:"currency"`
	ExternalTransactionID string          `json:"external_transaction_id,omitempty"`
	Source                string          `json:"source"` // webhook | poll
	OccurredAt            time.Time       `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, evt PaymentEvent) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, PaymentEvent) error { return nil }

// FanOut publishes to every publisher and joins their errors.
type FanOut []Publisher

func (f FanOut) Publish(ctx context.Context, evt PaymentEvent) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
