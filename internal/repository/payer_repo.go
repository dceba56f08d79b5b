package repository

import (
	"context"
	"errors"

	"paysync/internal/domain"
	"paysync/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrPayerNotFound = errors.New("payer account not found")

type PayerAccountRepository struct {
	db *gorm.DB
}

func NewPayerAccountRepository(db *gorm.DB) *PayerAccountRepository {
	return &PayerAccountRepository{db: db}
}

func (r *PayerAccountRepository) GetByUserID(ctx context.Context, userID uint) (*models.PayerAccount, error) {
	var a models.PayerAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreditPaid adds amount to the payer's total_paid and flags the account paid
// in one UPDATE, so concurrent approvals for the same payer never lose an
// increment. tx may be nil. It reports false when the account does not exist.
func (r *PayerAccountRepository) CreditPaid(ctx context.Context, tx *gorm.DB, userID uint, amount decimal.Decimal) (bool, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	res := db.WithContext(ctx).
		Model(&models.PayerAccount{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"total_paid":     gorm.Expr("total_paid + ?", amount),
			"payment_status": domain.PayerStatusPaid,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
