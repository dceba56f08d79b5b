package repository

import (
	"context"
	"time"

	"paysync/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record inserts ev unless (provider, provider_event_id) already exists, in
// which case the stored row is returned with created=false.
func (r *WebhookEventRepository) Record(ctx context.Context, ev *models.WebhookEvent) (*models.WebhookEvent, bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ev)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return ev, true, nil
	}
	var existing models.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", ev.Provider, ev.ProviderEventID).
		First(&existing).Error
	if err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

// MarkProcessed stamps the outcome of applying the event. A non-nil procErr
// leaves processed_at empty so a redelivery is applied again.
func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, id uint, procErr error) error {
	updates := map[string]interface{}{"processing_error": ""}
	if procErr != nil {
		updates["processing_error"] = procErr.Error()
	} else {
		updates["processed_at"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *WebhookEventRepository) ListByPayment(ctx context.Context, paymentID string) ([]models.WebhookEvent, error) {
	var list []models.WebhookEvent
	err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Order("id ASC").Find(&list).Error
	return list, err
}

