package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrUnavailable wraps transport failures, timeouts and 5xx answers from a provider.
var ErrUnavailable = errors.New("provider unavailable")

// Metadata is the correlation block attached to a checkout session.
type Metadata struct {
	PaymentID string `json:"payment_id"`
	PayerID   string `json:"payer_id,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
}

type SessionRequest struct {
	Amount            decimal.Decimal
	Currency          string
	Description       string
	Installments      int
	Method            string
	ExternalReference string
	Metadata          Metadata
	SuccessURL        string
	CancelURL         string
}

type Session struct {
	ID          string
	RedirectURL string
}

// TransactionSummary is one search hit. Status is the provider-native string.
type TransactionSummary struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	Amount            decimal.Decimal
	CreatedAt         time.Time
}

// Provider is a hosted-checkout payment provider.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
	// SearchPayments returns up to limit transactions for reference, newest first.
	SearchPayments(ctx context.Context, reference string, limit int) ([]TransactionSummary, error)
}
