package service

import (
	"context"
	"sync"
	"testing"

	"paysync/internal/domain"
	"paysync/internal/models"
	"paysync/internal/repository"
	"paysync/internal/testutil"
	"paysync/pkg/events"
	"paysync/pkg/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	payments *repository.PaymentRepository
	payers   *repository.PayerAccountRepository
	webhooks *repository.WebhookEventRepository
	pub      *recordingPublisher
	applier  *TransitionApplier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{
		db:       db,
		payments: repository.NewPaymentRepository(db),
		payers:   repository.NewPayerAccountRepository(db),
		webhooks: repository.NewWebhookEventRepository(db),
		pub:      &recordingPublisher{},
	}
	f.applier = NewTransitionApplier(db, f.payments, f.payers, f.pub, zap.NewNop())
	return f
}

func (f *fixture) seedPayment(t *testing.T, payerID uint, amount string, status domain.PaymentStatus) *models.PaymentRecord {
	t.Helper()
	rec := &models.PaymentRecord{
		ID:           uuid.NewString(),
		PayerID:      payerID,
		Amount:       decimal.RequireFromString(amount),
		Currency:     "BRL",
		Method:       domain.MethodCard,
		Installments: 1,
		Status:       status,
	}
	require.NoError(t, f.payments.Create(context.Background(), rec))
	return rec
}

func (f *fixture) reload(t *testing.T, id string) *models.PaymentRecord {
	t.Helper()
	rec, err := f.payments.GetByID(context.Background(), id)
	require.NoError(t, err)
	return rec
}

func (f *fixture) totalPaid(t *testing.T, payerID uint) decimal.Decimal {
	t.Helper()
	acct, err := f.payers.GetByUserID(context.Background(), payerID)
	require.NoError(t, err)
	return acct.TotalPaid
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.PaymentEvent
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.PaymentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Events() []events.PaymentEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.PaymentEvent(nil), p.events...)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateSession(ctx context.Context, req payment.SessionRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	s, _ := args.Get(0).(*payment.Session)
	return s, args.Error(1)
}

func (m *mockProvider) SearchPayments(ctx context.Context, reference string, limit int) ([]payment.TransactionSummary, error) {
	args := m.Called(ctx, reference, limit)
	list, _ := args.Get(0).([]payment.TransactionSummary)
	return list, args.Error(1)
}

func amountEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func seedPayer(t *testing.T, f *fixture, userID uint) {
	t.Helper()
	testutil.SeedPayer(t, f.db, userID)
}
