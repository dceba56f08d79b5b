package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayerAccount accumulates what a payer has paid. It is owned by the account
// subsystem; reconciliation only credits it.
type PayerAccount struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	TotalPaid     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"total_paid"`
	PaymentStatus string          `gorm:"size:16;not null;default:'unpaid'" json:"payment_status"`
	Currency      string          `gorm:"size:3;default:'BRL'" json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (PayerAccount) TableName() string {
	return "payer_accounts"
}
