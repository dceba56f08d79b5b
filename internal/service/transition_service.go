package service

import (
	"context"
	"fmt"
	"time"

	"paysync/internal/domain"
	"paysync/internal/models"
	"paysync/internal/repository"
	"paysync/pkg/events"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sources of a transition, carried into logs and events.
const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
)

// A record changes status at most twice (pending -> declined -> approved), so
// a caller that keeps losing the compare-and-set settles within this many rounds.
const maxTransitionAttempts = 3

type TransitionRequest struct {
	Reference     string
	Target        domain.PaymentStatus
	TransactionID string
	Source        string
}

type TransitionResult struct {
	Record         *models.PaymentRecord
	Previous       domain.PaymentStatus
	Applied        bool // this call wrote the new status
	LedgerCredited bool // this call credited the payer account
}

// PayerLedger is the privileged operation that credits another user's
// account. It runs inside the caller's transaction.
type PayerLedger interface {
	CreditPaid(ctx context.Context, tx *gorm.DB, payerID uint, amount decimal.Decimal) (bool, error)
}

// TransitionApplier is the only writer of payment status. Webhook deliveries
// and polls both go through Apply, and the payer credit happens only inside
// the winning approval.
type TransitionApplier struct {
	db       *gorm.DB
	payments *repository.PaymentRepository
	ledger   *ledgerUpdater
	events   events.Publisher
	log      *zap.Logger
	now      func() time.Time
}

func NewTransitionApplier(db *gorm.DB, payments *repository.PaymentRepository, payers PayerLedger, pub events.Publisher, log *zap.Logger) *TransitionApplier {
	if pub == nil {
		pub = events.Nop{}
	}
	return &TransitionApplier{
		db:       db,
		payments: payments,
		ledger:   &ledgerUpdater{payers: payers, log: log},
		events:   pub,
		log:      log,
		now:      time.Now,
	}
}

// Apply moves the record to req.Target if the state machine allows it.
// Repeating a call, or racing it against other calls, never credits the payer
// more than once.
func (a *TransitionApplier) Apply(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	if !req.Target.Valid() || req.Target == domain.StatusPending {
		return nil, fmt.Errorf("unsupported target status %q", req.Target)
	}
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		res, lost, err := a.applyOnce(ctx, req)
		if err != nil {
			return nil, err
		}
		if !lost {
			if res.Applied {
				a.publish(ctx, req, res)
			}
			return res, nil
		}
		a.log.Debug("transition lost compare-and-set, re-evaluating",
			zap.String("payment_id", req.Reference),
			zap.Int("attempt", attempt))
	}
	// Someone else keeps moving the record; report where it ended up.
	rec, err := a.payments.GetByID(ctx, req.Reference)
	if err != nil {
		return nil, err
	}
	return &TransitionResult{Record: rec, Previous: rec.Status}, nil
}

// applyOnce runs one read-decide-write round in its own transaction. lost is
// true when another caller changed the status between our read and write.
func (a *TransitionApplier) applyOnce(ctx context.Context, req TransitionRequest) (*TransitionResult, bool, error) {
	var res *TransitionResult
	var lost bool
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payments := a.payments.WithTx(tx)
		rec, err := payments.GetByID(ctx, req.Reference)
		if err != nil {
			return err
		}
		res = &TransitionResult{Record: rec, Previous: rec.Status}
		if !transitionAllowed(rec.Status, req.Target) {
			return nil
		}

		now := a.now()
		ok, err := payments.CompareAndSetStatus(ctx, rec.ID, rec.Status, req.Target, req.TransactionID, now)
		if err != nil {
			return fmt.Errorf("update payment %s: %w", rec.ID, err)
		}
		if !ok {
			lost = true
			return nil
		}
		res.Applied = true

		if req.Target == domain.StatusApproved {
			credited, err := a.ledger.credit(ctx, tx, rec)
			if err != nil {
				return err
			}
			res.LedgerCredited = credited
		}

		rec.Status = req.Target
		rec.UpdatedAt = now
		if rec.ExternalTransactionID == nil && req.TransactionID != "" {
			id := req.TransactionID
			rec.ExternalTransactionID = &id
		}
		if req.Target == domain.StatusApproved {
			rec.ApprovedAt = &now
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return res, lost, nil
}

// transitionAllowed encodes the state machine: approved is final, declined
// may only be promoted to approved.
func transitionAllowed(current, target domain.PaymentStatus) bool {
	switch current {
	case domain.StatusPending:
		return true
	case domain.StatusDeclined:
		return target == domain.StatusApproved
	default:
		return false
	}
}

func (a *TransitionApplier) publish(ctx context.Context, req TransitionRequest, res *TransitionResult) {
	rec := res.Record
	fields := []zap.Field{
		zap.String("payment_id", rec.ID),
		zap.String("from", string(res.Previous)),
		zap.String("to", string(rec.Status)),
		zap.String("source", req.Source),
		zap.Bool("ledger_credited", res.LedgerCredited),
	}
	a.log.Info("payment transitioned", fields...)
	evt := events.PaymentEvent{
		PaymentID:             rec.ID,
		PayerID:               rec.PayerID,
		Status:                string(rec.Status),
		PreviousStatus:        string(res.Previous),
		Amount:                rec.Amount,
		Currency:              rec.Currency,
		ExternalTransactionID: rec.ExternalID(),
		Source:                req.Source,
		OccurredAt:            rec.UpdatedAt,
	}
	if err := a.events.Publish(ctx, evt); err != nil {
		a.log.Warn("publish payment event failed", append(fields, zap.Error(err))...)
	}
}

// ledgerUpdater applies the financial side effect of an approval. It is only
// reachable from TransitionApplier, inside the transaction that won the
// approval, which is what makes the credit happen at most once.
type ledgerUpdater struct {
	payers PayerLedger
	log    *zap.Logger
}

func (u *ledgerUpdater) credit(ctx context.Context, tx *gorm.DB, rec *models.PaymentRecord) (bool, error) {
	found, err := u.payers.CreditPaid(ctx, tx, rec.PayerID, rec.Amount)
	if err != nil {
		return false, fmt.Errorf("credit payer %d: %w", rec.PayerID, err)
	}
	if !found {
		u.log.Warn("payer account missing, payment stays approved without credit",
			zap.String("payment_id", rec.ID),
			zap.Uint("payer_id", rec.PayerID),
			zap.String("amount", rec.Amount.StringFixed(2)))
		return false, nil
	}
	u.log.Info("payer credited",
		zap.String("payment_id", rec.ID),
		zap.Uint("payer_id", rec.PayerID),
		zap.String("amount", rec.Amount.StringFixed(2)))
	return true, nil
}
