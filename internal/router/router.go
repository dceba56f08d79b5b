package router

import (
	"net/http"

	"paysync/internal/app"
	"paysync/internal/handler"
	"paysync/internal/middleware"
	"paysync/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Setup builds the HTTP engine. nrApp may be nil.
func Setup(a *app.App, nrApp *newrelic.Application) *gin.Engine {
	cfg := a.Config
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	if nrApp != nil {
		r.Use(nrgin.Middleware(nrApp))
	}
	limiter := middleware.NewIPRateLimiter(cfg.Server.RateLimit)
	a.OnClose(limiter.Stop)
	limited := middleware.RateLimit(limiter)

	checkoutHandler := handler.NewCheckoutHandler(a.Checkout)
	paymentHandler := handler.NewPaymentHandler(a.Reconciler, a.Payments, a.Log.Named("http"))
	webhookHandler := handler.NewWebhookHandler(a.Receiver, cfg.Payment.SignatureHeader)
	accountHandler := handler.NewAccountHandler(a.Payers)

	authMw := middleware.AuthRequired(&cfg.JWT)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := a.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhooks are not rate limited.
	api := r.Group("/api/v1")
	{
		payments := api.Group("/payments")
		payments.Use(limited, authMw)
		{
			payments.POST("/checkout", checkoutHandler.Create)
			payments.POST("/status", paymentHandler.Status)
			payments.POST("/:id/poll", paymentHandler.Status)
			payments.GET("/:id/status", paymentHandler.Status)
			payments.GET("/:id", paymentHandler.Get)
		}
		api.GET("/me/account", limited, authMw, accountHandler.Get)
		api.POST("/webhooks/payment", webhookHandler.Handle)
	}

	r.GET("/ws/payments", limited, ws.UpgradePaymentsWS(&cfg.JWT, a.Hub))

	return r
}
