package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paysync/config"
	"paysync/internal/domain"
	"paysync/internal/models"
	"paysync/internal/repository"
	"paysync/pkg/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CheckoutRequest struct {
	PayerID      uint
	Amount       decimal.Decimal
	Installments int
	Method       string
	Description  string
}

type CheckoutResult struct {
	PaymentID   string `json:"payment_id"`
	RedirectURL string `json:"redirect_url"`
}

// CheckoutService creates the pending record and the provider's hosted session.
type CheckoutService struct {
	payments *repository.PaymentRepository
	provider payment.Provider
	cfg      *config.PaymentConfig
	timeout  time.Duration
	log      *zap.Logger
}

func NewCheckoutService(payments *repository.PaymentRepository, provider payment.Provider, cfg *config.PaymentConfig, timeout time.Duration, log *zap.Logger) *CheckoutService {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CheckoutService{payments: payments, provider: provider, cfg: cfg, timeout: timeout, log: log}
}

// Initiate validates the request, stores a pending record and asks the
// provider for a session. A provider failure leaves the record pending.
func (s *CheckoutService) Initiate(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	if req.PayerID == 0 {
		return nil, domain.ErrUnauthorized
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, domain.ErrInvalidAmount
	}
	if req.Installments == 0 {
		req.Installments = 1
	}
	if req.Installments < 1 {
		return nil, domain.ErrInvalidInstallments
	}

	rec := &models.PaymentRecord{
		ID:           uuid.NewString(),
		PayerID:      req.PayerID,
		Amount:       req.Amount,
		Currency:     s.cfg.Currency,
		Method:       domain.ParseMethod(req.Method),
		Installments: req.Installments,
		Status:       domain.StatusPending,
		Description:  strings.TrimSpace(req.Description),
	}
	if err := s.payments.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create payment record: %w", err)
	}

	corr := domain.NewCorrelation(rec.ID, rec.PayerID)
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	session, err := s.provider.CreateSession(pctx, payment.SessionRequest{
		Amount:            rec.Amount,
		Currency:          rec.Currency,
		Description:       rec.Description,
		Installments:      rec.Installments,
		Method:            string(rec.Method),
		ExternalReference: corr.InternalID,
		Metadata: payment.Metadata{
			PaymentID: corr.InternalID,
			PayerID:   corr.PayerID,
			Purpose:   corr.Purpose,
		},
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
	})
	if err != nil {
		s.log.Error("checkout session failed, record left pending",
			zap.String("payment_id", rec.ID),
			zap.Uint("payer_id", rec.PayerID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	s.log.Info("checkout session created",
		zap.String("payment_id", rec.ID),
		zap.String("session_id", session.ID),
		zap.Uint("payer_id", rec.PayerID),
		zap.String("amount", rec.Amount.StringFixed(2)))
	return &CheckoutResult{PaymentID: rec.ID, RedirectURL: session.RedirectURL}, nil
}
