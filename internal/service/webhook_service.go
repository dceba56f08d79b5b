package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"paysync/internal/domain"
	"paysync/internal/models"
	"paysync/internal/repository"
	"paysync/pkg/payment"

	"go.uber.org/zap"
)

// WebhookOutcome says what happened to an authenticated delivery. Every
// outcome is acknowledged to the provider.
type WebhookOutcome string

const (
	OutcomeApplied   WebhookOutcome = "applied"
	OutcomeNoop      WebhookOutcome = "noop"
	OutcomeIgnored   WebhookOutcome = "ignored"
	OutcomeDuplicate WebhookOutcome = "duplicate"
	OutcomeFailed    WebhookOutcome = "failed"
)

type webhookEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		TransactionID     string             `json:"transaction_id"`
		ExternalReference string             `json:"external_reference"`
		Metadata          domain.Correlation `json:"metadata"`
	} `json:"data"`
}

// WebhookReceiver authenticates provider events and hands them to the
// TransitionApplier. Its contract is best-effort apply, always acknowledge:
// once the signature verifies, Receive never returns an error; failures are
// logged and left for a redelivery or a poll to repair.
type WebhookReceiver struct {
	provider string
	verifier *payment.Verifier
	applier  *TransitionApplier
	events   *repository.WebhookEventRepository
	log      *zap.Logger
}

func NewWebhookReceiver(provider string, verifier *payment.Verifier, applier *TransitionApplier, eventRepo *repository.WebhookEventRepository, log *zap.Logger) *WebhookReceiver {
	return &WebhookReceiver{provider: provider, verifier: verifier, applier: applier, events: eventRepo, log: log}
}

// Receive returns domain.ErrSignatureInvalid, and does nothing else, when the
// signature does not verify. The body is not parsed before that check.
func (w *WebhookReceiver) Receive(ctx context.Context, body []byte, signature string) (WebhookOutcome, error) {
	if err := w.verifier.Verify(body, signature); err != nil {
		w.log.Warn("webhook rejected", zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		w.log.Warn("webhook body is not valid json, ignoring", zap.Error(err))
		return OutcomeIgnored, nil
	}
	fields := []zap.Field{zap.String("event_id", env.ID), zap.String("event_type", env.Type)}

	var target domain.PaymentStatus
	switch env.Type {
	case domain.EventCheckoutCompleted:
		target = domain.StatusApproved
	case domain.EventPaymentFailed:
		target = domain.StatusDeclined
	default:
		w.log.Info("unhandled webhook event type, ignoring", fields...)
		return OutcomeIgnored, nil
	}

	corr := env.Data.Metadata.Resolve(env.Data.ExternalReference)
	if err := corr.Validate(); err != nil {
		w.log.Info("webhook without correlation id, ignoring", fields...)
		return OutcomeIgnored, nil
	}
	fields = append(fields, zap.String("payment_id", corr.InternalID))

	logged := w.record(ctx, env, corr, body, fields)
	if logged != nil && logged.ProcessedAt != nil {
		w.log.Info("duplicate webhook delivery, already processed", fields...)
		return OutcomeDuplicate, nil
	}

	res, err := w.applier.Apply(ctx, TransitionRequest{
		Reference:     corr.InternalID,
		Target:        target,
		TransactionID: env.Data.TransactionID,
		Source:        SourceWebhook,
	})
	w.markProcessed(ctx, logged, err, fields)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			w.log.Warn("webhook for unknown payment record, acknowledged", append(fields, zap.Error(err))...)
		} else {
			w.log.Error("webhook transition failed, acknowledged anyway", append(fields, zap.Error(err))...)
		}
		return OutcomeFailed, nil
	}
	if !res.Applied {
		w.log.Info("webhook was a no-op",
			append(fields, zap.String("status", string(res.Record.Status)))...)
		return OutcomeNoop, nil
	}
	return OutcomeApplied, nil
}

// record stores the delivery in the event log. It returns nil when the event
// has no id or the log is unavailable; processing continues either way.
func (w *WebhookReceiver) record(ctx context.Context, env webhookEnvelope, corr domain.Correlation, body []byte, fields []zap.Field) *models.WebhookEvent {
	if w.events == nil || env.ID == "" {
		return nil
	}
	ev, _, err := w.events.Record(ctx, &models.WebhookEvent{
		Provider:        w.provider,
		ProviderEventID: env.ID,
		EventType:       env.Type,
		PaymentID:       corr.InternalID,
		Payload:         string(body),
		SignatureValid:  true,
	})
	if err != nil {
		w.log.Warn("webhook event log write failed", append(fields, zap.Error(err))...)
		return nil
	}
	return ev
}

func (w *WebhookReceiver) markProcessed(ctx context.Context, ev *models.WebhookEvent, applyErr error, fields []zap.Field) {
	if w.events == nil || ev == nil {
		return
	}
	if err := w.events.MarkProcessed(ctx, ev.ID, applyErr); err != nil {
		w.log.Warn("webhook event log update failed", append(fields, zap.Error(err))...)
	}
}
