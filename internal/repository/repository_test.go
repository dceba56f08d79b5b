package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"paysync/internal/domain"
	"paysync/internal/models"
	"paysync/internal/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id string, payerID uint, status domain.PaymentStatus) *models.PaymentRecord {
	return &models.PaymentRecord{
		ID:           id,
		PayerID:      payerID,
		Amount:       decimal.RequireFromString("12.34"),
		Currency:     "BRL",
		Method:       domain.MethodCard,
		Installments: 1,
		Status:       status,
	}
}

func TestPaymentRepository_CompareAndSetStatus(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRecord("p1", 1, domain.StatusPending)))
	now := time.Now()

	ok, err := repo.CompareAndSetStatus(ctx, "p1", domain.StatusPending, domain.StatusDeclined, "tx-1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// Stale expectation loses.
	ok, err = repo.CompareAndSetStatus(ctx, "p1", domain.StatusPending, domain.StatusApproved, "tx-2", now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.CompareAndSetStatus(ctx, "p1", domain.StatusDeclined, domain.StatusApproved, "tx-2", now)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, got.Status)
	assert.Equal(t, "tx-1", got.ExternalID())
	assert.NotNil(t, got.ApprovedAt)
	assert.True(t, decimal.RequireFromString("12.34").Equal(got.Amount))
}

func TestPaymentRepository_Lookups(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newRecord("p1", 1, domain.StatusPending)))

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	_, err = repo.GetForPayer(ctx, "p1", 2)
	assert.ErrorIs(t, err, domain.ErrRecordNotFound)

	got, err := repo.GetForPayer(ctx, "p1", 1)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
}

func TestPaymentRepository_ListPendingBefore(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPaymentRepository(db)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, st := range []domain.PaymentStatus{domain.StatusPending, domain.StatusApproved, domain.StatusPending, domain.StatusPending} {
		rec := newRecord(string(rune('a'+i)), 1, st)
		rec.CreatedAt = base.Add(time.Duration(-i) * time.Minute)
		require.NoError(t, repo.Create(ctx, rec))
	}
	require.NoError(t, repo.Create(ctx, newRecord("fresh", 1, domain.StatusPending)))

	list, err := repo.ListPendingBefore(ctx, time.Now().Add(-time.Minute), 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "d", list[0].ID, "oldest first")
	assert.Equal(t, "c", list[1].ID)
}

func TestPayerAccountRepository_CreditPaid(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPayerAccountRepository(db)
	ctx := context.Background()
	testutil.SeedPayer(t, db, 5)

	found, err := repo.CreditPaid(ctx, nil, 5, decimal.RequireFromString("150.00"))
	require.NoError(t, err)
	assert.True(t, found)
	found, err = repo.CreditPaid(ctx, db, 5, decimal.RequireFromString("50.00"))
	require.NoError(t, err)
	assert.True(t, found)

	acct, err := repo.GetByUserID(ctx, 5)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("200.00").Equal(acct.TotalPaid), acct.TotalPaid.String())
	assert.Equal(t, domain.PayerStatusPaid, acct.PaymentStatus)

	found, err = repo.CreditPaid(ctx, nil, 6, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.False(t, found)

	_, err = repo.GetByUserID(ctx, 6)
	assert.True(t, errors.Is(err, ErrPayerNotFound))
}

func TestWebhookEventRepository_RecordDedupes(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewWebhookEventRepository(db)
	ctx := context.Background()

	first, created, err := repo.Record(ctx, &models.WebhookEvent{Provider: "stub", ProviderEventID: "evt_1", EventType: "checkout_completed", PaymentID: "p1"})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotZero(t, first.ID)

	require.NoError(t, repo.MarkProcessed(ctx, first.ID, errors.New("db down")))
	again, created, err := repo.Record(ctx, &models.WebhookEvent{Provider: "stub", ProviderEventID: "evt_1", EventType: "checkout_completed", PaymentID: "p1"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Nil(t, again.ProcessedAt)
	assert.Equal(t, "db down", again.ProcessingError)

	require.NoError(t, repo.MarkProcessed(ctx, first.ID, nil))
	_, created, err = repo.Record(ctx, &models.WebhookEvent{Provider: "other", ProviderEventID: "evt_1", PaymentID: "p1"})
	require.NoError(t, err)
	assert.True(t, created, "event ids are scoped per provider")

	list, err := repo.ListByPayment(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.NotNil(t, list[0].ProcessedAt)
	assert.Empty(t, list[0].ProcessingError)
}
