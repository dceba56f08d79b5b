package models

import (
	"time"

	"paysync/internal/domain"

	"github.com/shopspring/decimal"
)

// PaymentRecord is the ledger record for one payment attempt. Its ID is the
// internal reference sent to the provider as external_reference.
type PaymentRecord struct {
	ID                    string               `gorm:"primaryKey;size:36" json:"id"`
	PayerID               uint                 `gorm:"not null;index" json:"payer_id"`
	Amount                decimal.Decimal      `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency              string               `gorm:"size:3;not null" json:"currency"`
	Method                domain.PaymentMethod `gorm:"size:16;not null" json:"method"`
	Installments          int                  `gorm:"not null;default:1" json:"installments"`
	Status                domain.PaymentStatus `gorm:"size:16;not null;index:idx_payments_status_created,priority:1" json:"status"`
	ExternalTransactionID *string              `gorm:"size:128" json:"external_transaction_id,omitempty"`
	Description           string               `gorm:"size:255" json:"description"`
	ApprovedAt            *time.Time           `json:"approved_at,omitempty"`
	CreatedAt             time.Time            `gorm:"index:idx_payments_status_created,priority:2" json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

func (PaymentRecord) TableName() string {
	return "payments"
}

// ExternalID returns the provider transaction id or "" when not yet confirmed.
func (p *PaymentRecord) ExternalID() string {
	if p.ExternalTransactionID == nil {
		return ""
	}
	return *p.ExternalTransactionID
}
