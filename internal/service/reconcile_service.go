package service

import (
	"context"
	"errors"
	"time"

	"paysync/internal/domain"
	"paysync/internal/models"
	"paysync/internal/repository"
	"paysync/pkg/lock"
	"paysync/pkg/payment"

	"go.uber.org/zap"
)

// PollResult is what the status-poll caller sees. Soft means the provider
// could not be consulted and Status is the last known local status.
type PollResult struct {
	PaymentID             string `json:"-"`
	Approved              bool   `json:"approved"`
	Status                string `json:"status"`
	ExternalTransactionID string `json:"external_transaction_id,omitempty"`
	ProviderStatus        string `json:"-"`
	Soft                  bool   `json:"-"`
}

type ReconcilerConfig struct {
	SearchLimit int
	Timeout     time.Duration
	LockTTL     time.Duration
}

// Reconciler pulls the provider's view of a payment and feeds it through the
// same TransitionApplier the webhook path uses.
type Reconciler struct {
	payments *repository.PaymentRepository
	provider payment.Provider
	applier  *TransitionApplier
	locker   lock.Locker
	cfg      ReconcilerConfig
	log      *zap.Logger
}

func NewReconciler(payments *repository.PaymentRepository, provider payment.Provider, applier *TransitionApplier, locker lock.Locker, cfg ReconcilerConfig, log *zap.Logger) *Reconciler {
	if locker == nil {
		locker = lock.Nop{}
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 15 * time.Second
	}
	return &Reconciler{
		payments: payments,
		provider: provider,
		applier:  applier,
		locker:   locker,
		cfg:      cfg,
		log:      log,
	}
}

// Poll reconciles one record. Only a missing record or a store failure is
// returned as an error; provider trouble yields a soft result.
func (r *Reconciler) Poll(ctx context.Context, paymentID string) (*PollResult, error) {
	rec, err := r.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return r.poll(ctx, rec)
}

// PollForPayer is Poll restricted to records owned by payerID.
func (r *Reconciler) PollForPayer(ctx context.Context, paymentID string, payerID uint) (*PollResult, error) {
	rec, err := r.payments.GetForPayer(ctx, paymentID, payerID)
	if err != nil {
		return nil, err
	}
	return r.poll(ctx, rec)
}

func (r *Reconciler) poll(ctx context.Context, rec *models.PaymentRecord) (*PollResult, error) {
	if rec.Status == domain.StatusApproved {
		return localResult(rec, false), nil
	}

	release, acquired, err := r.locker.Acquire(ctx, "payment:"+rec.ID, r.cfg.LockTTL)
	switch {
	case err != nil:
		r.log.Warn("record lock unavailable, polling without it", zap.String("payment_id", rec.ID), zap.Error(err))
	case !acquired:
		r.log.Debug("poll already in flight", zap.String("payment_id", rec.ID))
		return localResult(rec, true), nil
	default:
		defer release()
	}

	qctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	txs, err := r.provider.SearchPayments(qctx, rec.ID, r.cfg.SearchLimit)
	if err != nil {
		r.log.Warn("provider search failed, reporting local status",
			zap.String("payment_id", rec.ID),
			zap.Bool("timeout", errors.Is(err, context.DeadlineExceeded) || errors.Is(qctx.Err(), context.DeadlineExceeded)),
			zap.Error(err))
		return localResult(rec, true), nil
	}

	if tx, ok := findStatus(txs, rec.ID, domain.ProviderStatusApproved); ok {
		if !tx.Amount.IsZero() && !tx.Amount.Equal(rec.Amount) {
			r.log.Warn("provider amount differs from record",
				zap.String("payment_id", rec.ID),
				zap.String("record_amount", rec.Amount.StringFixed(2)),
				zap.String("provider_amount", tx.Amount.StringFixed(2)))
		}
		res, err := r.applier.Apply(ctx, TransitionRequest{
			Reference:     rec.ID,
			Target:        domain.StatusApproved,
			TransactionID: tx.ID,
			Source:        SourcePoll,
		})
		if err != nil {
			r.log.Error("apply approval from poll failed", zap.String("payment_id", rec.ID), zap.Error(err))
			return localResult(rec, true), nil
		}
		out := localResult(res.Record, false)
		out.ProviderStatus = tx.Status
		return out, nil
	}

	if tx, ok := findStatus(txs, rec.ID, domain.ProviderStatusPending, domain.ProviderStatusInProcess); ok {
		out := localResult(rec, false)
		out.Status = string(domain.StatusPending)
		out.ProviderStatus = tx.Status
		return out, nil
	}

	return localResult(rec, false), nil
}

// findStatus returns the newest transaction for reference in one of statuses.
func findStatus(txs []payment.TransactionSummary, reference string, statuses ...string) (payment.TransactionSummary, bool) {
	for _, tx := range txs {
		if tx.ExternalReference != "" && tx.ExternalReference != reference {
			continue
		}
		for _, s := range statuses {
			if tx.Status == s {
				return tx, true
			}
		}
	}
	return payment.TransactionSummary{}, false
}

func localResult(rec *models.PaymentRecord, soft bool) *PollResult {
	return &PollResult{
		PaymentID:             rec.ID,
		Approved:              rec.Status == domain.StatusApproved,
		Status:                string(rec.Status),
		ExternalTransactionID: rec.ExternalID(),
		Soft:                  soft,
	}
}

type SweepStats struct {
	Checked  int
	Approved int
	Soft     int
}

// SweepPending polls pending records older than olderThan, oldest first.
func (r *Reconciler) SweepPending(ctx context.Context, olderThan time.Duration, limit int) (SweepStats, error) {
	var stats SweepStats
	list, err := r.payments.ListPendingBefore(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return stats, err
	}
	for i := range list {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		res, err := r.poll(ctx, &list[i])
		if err != nil {
			r.log.Error("sweep poll failed", zap.String("payment_id", list[i].ID), zap.Error(err))
			continue
		}
		stats.Checked++
		if res.Approved {
			stats.Approved++
		}
		if res.Soft {
			stats.Soft++
		}
	}
	r.log.Info("sweep finished",
		zap.Int("candidates", len(list)),
		zap.Int("checked", stats.Checked),
		zap.Int("approved", stats.Approved),
		zap.Int("soft", stats.Soft))
	return stats, nil
}
