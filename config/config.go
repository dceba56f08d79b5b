package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Payment   PaymentConfig
	Provider  ProviderConfig
	Redis     RedisConfig
	NSQ       NSQConfig
	NewRelic  NewRelicConfig
	Log       LogConfig
	Reconcile ReconcileConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	RateLimit    int // requests per minute per client IP
}

type DatabaseConfig struct {
	Driver          string // mysql | postgres | sqlite
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// PaymentConfig covers the inbound side: webhook authentication and checkout defaults.
type PaymentConfig struct {
	WebhookSecret      string
	SignatureHeader    string
	SignatureTolerance time.Duration // max age of a t=... signed webhook; 0 disables the check
	Currency           string
	SuccessURL         string
	CancelURL          string
}

// ProviderConfig is the outbound hosted-checkout provider.
type ProviderConfig struct {
	Name         string // "http" or "stub"
	BaseURL      string
	AccessToken  string // static bearer token, used when ClientID is empty
	ClientID     string
	ClientSecret string
	TokenURL     string
	Timeout      time.Duration
	Retries      int
	SearchLimit  int
}

type RedisConfig struct {
	Addr     string // empty disables the record lock
	Password string
	DB       int
	LockTTL  time.Duration
}

type NSQConfig struct {
	Addr  string // nsqd TCP address; empty disables publishing
	Topic string
}

type NewRelicConfig struct {
	Enabled    bool
	AppName    string
	LicenseKey string
}

type LogConfig struct {
	Level string
}

type ReconcileConfig struct {
	SweepOlderThan time.Duration
	SweepBatch     int
}

// Load reads configuration from the environment (DATABASE_DRIVER, PAYMENT_WEBHOOK_SECRET, ...)
// over built-in defaults. In development a local .env file is loaded first.
func Load() *Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if v.GetString("server.env") == "development" {
		if err := godotenv.Load(); err != nil {
			log.Printf("[config] no .env loaded: %v", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("server.port"),
			Env:          v.GetString("server.env"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
			RateLimit:    v.GetInt("server.rate_limit"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			DSN:             v.GetString("database.dsn"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("jwt.access_secret"),
			AccessExpiry: v.GetDuration("jwt.access_expiry"),
			Issuer:       v.GetString("jwt.issuer"),
		},
		Payment: PaymentConfig{
			WebhookSecret:      v.GetString("payment.webhook_secret"),
			SignatureHeader:    v.GetString("payment.signature_header"),
			SignatureTolerance: v.GetDuration("payment.signature_tolerance"),
			Currency:           v.GetString("payment.currency"),
			SuccessURL:         v.GetString("payment.success_url"),
			CancelURL:          v.GetString("payment.cancel_url"),
		},
		Provider: ProviderConfig{
			Name:         v.GetString("provider.name"),
			BaseURL:      v.GetString("provider.base_url"),
			AccessToken:  v.GetString("provider.access_token"),
			ClientID:     v.GetString("provider.client_id"),
			ClientSecret: v.GetString("provider.client_secret"),
			TokenURL:     v.GetString("provider.token_url"),
			Timeout:      v.GetDuration("provider.timeout"),
			Retries:      v.GetInt("provider.retries"),
			SearchLimit:  v.GetInt("provider.search_limit"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lock_ttl"),
		},
		NSQ: NSQConfig{
			Addr:  v.GetString("nsq.addr"),
			Topic: v.GetString("nsq.topic"),
		},
		NewRelic: NewRelicConfig{
			Enabled:    v.GetBool("newrelic.enabled"),
			AppName:    v.GetString("newrelic.app_name"),
			LicenseKey: v.GetString("newrelic.license_key"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Reconcile: ReconcileConfig{
			SweepOlderThan: v.GetDuration("reconcile.sweep_older_than"),
			SweepBatch:     v.GetInt("reconcile.sweep_batch"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8099")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 100)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "paysync.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", time.Hour)

	v.SetDefault("jwt.access_secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", 15*time.Minute)
	v.SetDefault("jwt.issuer", "paysync")

	v.SetDefault("payment.webhook_secret", "")
	v.SetDefault("payment.signature_header", "X-Webhook-Signature")
	v.SetDefault("payment.signature_tolerance", 5*time.Minute)
	v.SetDefault("payment.currency", "BRL")
	v.SetDefault("payment.success_url", "http://localhost:3000/checkout/success")
	v.SetDefault("payment.cancel_url", "http://localhost:3000/checkout/cancel")

	v.SetDefault("provider.name", "stub")
	v.SetDefault("provider.base_url", "")
	v.SetDefault("provider.timeout", 10*time.Second)
	v.SetDefault("provider.retries", 2)
	v.SetDefault("provider.search_limit", 10)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", 15*time.Second)

	v.SetDefault("nsq.topic", "payment.transitions")

	v.SetDefault("newrelic.enabled", false)
	v.SetDefault("newrelic.app_name", "paysync")

	v.SetDefault("log.level", "info")

	v.SetDefault("reconcile.sweep_older_than", 2*time.Minute)
	v.SetDefault("reconcile.sweep_batch", 100)
}
