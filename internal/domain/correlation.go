package domain

import (
	"strconv"
	"strings"
)

// Correlation travels to the provider at session creation and comes back on
// webhook events and search results. InternalID is the payment record id.
type Correlation struct {
	InternalID string `json:"payment_id"`
	PayerID    string `json:"payer_id,omitempty"`
	Purpose    string `json:"purpose,omitempty"`
}

func NewCorrelation(paymentID string, payerID uint) Correlation {
	return Correlation{
		InternalID: paymentID,
		PayerID:    strconv.FormatUint(uint64(payerID), 10),
		Purpose:    PurposeCheckout,
	}
}

// Validate checks the fields a receiver needs before it can act.
func (c Correlation) Validate() error {
	if strings.TrimSpace(c.InternalID) == "" {
		return ErrMissingCorrelation
	}
	return nil
}

// Resolve prefers the metadata id and falls back to external_reference,
// since providers do not propagate both on every event type.
func (c Correlation) Resolve(externalReference string) Correlation {
	if strings.TrimSpace(c.InternalID) == "" {
		c.InternalID = strings.TrimSpace(externalReference)
	}
	return c
}
