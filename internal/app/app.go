// Package app wires the stores, provider and services shared by the HTTP
// server and the reconciler CLI.
package app

import (
	"context"
	"fmt"

	"paysync/config"
	"paysync/internal/database"
	"paysync/internal/repository"
	"paysync/internal/service"
	"paysync/internal/ws"
	"paysync/pkg/events"
	"paysync/pkg/lock"
	"paysync/pkg/payment"

	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const lockPrefix = "paysync:lock:"

type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB

	Payments *repository.PaymentRepository
	Payers   *repository.PayerAccountRepository
	Webhooks *repository.WebhookEventRepository

	Provider payment.Provider
	Hub      *ws.Hub

	Applier    *service.TransitionApplier
	Reconciler *service.Reconciler
	Checkout   *service.CheckoutService
	Receiver   *service.WebhookReceiver

	closers []func()
}

// New opens the database and builds every service. Redis and NSQ are
// optional: an empty address leaves them out.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return Build(ctx, cfg, db, log)
}

// Build wires the services around an open database.
func Build(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Payments: repository.NewPaymentRepository(db),
		Payers:   repository.NewPayerAccountRepository(db),
		Webhooks: repository.NewWebhookEventRepository(db),
		Hub:      ws.NewHub(),
	}

	provider, err := newProvider(&cfg.Provider)
	if err != nil {
		return nil, err
	}
	a.Provider = provider

	var locker lock.Locker = lock.Nop{}
	if cfg.Redis.Addr != "" {
		client, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		locker = lock.NewRedisLocker(client, lockPrefix)
		log.Info("redis record lock enabled", zap.String("addr", cfg.Redis.Addr))
	}

	pubs := events.FanOut{a.Hub}
	if cfg.NSQ.Addr != "" {
		nsqPub, err := events.NewNSQPublisher(cfg.NSQ.Addr, cfg.NSQ.Topic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, nsqPub.Stop)
		pubs = append(pubs, nsqPub)
		log.Info("nsq publishing enabled", zap.String("addr", cfg.NSQ.Addr), zap.String("topic", cfg.NSQ.Topic))
	}

	a.Applier = service.NewTransitionApplier(db, a.Payments, a.Payers, pubs, log.Named("transition"))
	a.Reconciler = service.NewReconciler(a.Payments, provider, a.Applier, locker, service.ReconcilerConfig{
		SearchLimit: cfg.Provider.SearchLimit,
		Timeout:     cfg.Provider.Timeout,
		LockTTL:     cfg.Redis.LockTTL,
	}, log.Named("reconcile"))
	a.Checkout = service.NewCheckoutService(a.Payments, provider, &cfg.Payment, cfg.Provider.Timeout, log.Named("checkout"))
	a.Receiver = service.NewWebhookReceiver(cfg.Provider.Name,
		payment.NewVerifier(cfg.Payment.WebhookSecret, cfg.Payment.SignatureTolerance),
		a.Applier, a.Webhooks, log.Named("webhook"))

	if cfg.Payment.WebhookSecret == "" {
		log.Warn("payment webhook secret is empty, every webhook will be rejected")
	}
	return a, nil
}

func newProvider(cfg *config.ProviderConfig) (payment.Provider, error) {
	switch cfg.Name {
	case "", "stub":
		return payment.NewStubProvider(), nil
	case "http":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("provider.base_url is required for the http provider")
		}
		return payment.NewHTTPProvider(payment.HTTPProviderConfig{
			BaseURL:      cfg.BaseURL,
			AccessToken:  cfg.AccessToken,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Timeout:      cfg.Timeout,
			Retries:      cfg.Retries,
		}), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Name)
	}
}

// NewRelic starts the agent when enabled. A failure is logged and the
// service runs without it.
func NewRelic(cfg *config.NewRelicConfig, log *zap.Logger) *newrelic.Application {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		log.Info("new relic disabled")
		return nil
	}
	nrApp, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
	)
	if err != nil {
		log.Warn("new relic init failed, continuing without it", zap.Error(err))
		return nil
	}
	return nrApp
}

// OnClose registers fn to run when the App is closed.
func (a *App) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases Redis, NSQ and anything registered with OnClose, in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
