package repository

import (
	"context"
	"errors"
	"time"

	"paysync/internal/domain"
	"paysync/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetForPayer loads a record only if it belongs to payerID.
func (r *PaymentRepository) GetForPayer(ctx context.Context, id string, payerID uint) (*models.PaymentRecord, error) {
	var p models.PaymentRecord
	err := r.db.WithContext(ctx).Where("id = ? AND payer_id = ?", id, payerID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CompareAndSetStatus moves a record from -> to only if its status is still
// from. It reports whether this call performed the write. externalID is
// recorded only when the record has none yet.
func (r *PaymentRepository) CompareAndSetStatus(ctx context.Context, id string, from, to domain.PaymentStatus, externalID string, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if externalID != "" {
		updates["external_transaction_id"] = gorm.Expr(
			"CASE WHEN external_transaction_id IS NULL OR external_transaction_id = '' THEN ? ELSE external_transaction_id END",
			externalID,
		)
	}
	if to == domain.StatusApproved {
		updates["approved_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListPendingBefore returns pending records created before the cutoff, oldest first.
func (r *PaymentRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]models.PaymentRecord, error) {
	var list []models.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", domain.StatusPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}
