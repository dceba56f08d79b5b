package handler

import (
	"errors"
	"net/http"

	"paysync/internal/domain"
	"paysync/internal/middleware"
	"paysync/internal/repository"
	"paysync/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	reconciler *service.Reconciler
	payments   *repository.PaymentRepository
	log        *zap.Logger
}

func NewPaymentHandler(reconciler *service.Reconciler, payments *repository.PaymentRepository, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{reconciler: reconciler, payments: payments, log: log}
}

// Status polls the provider for the caller's payment. Reconciliation problems
// never block the page: anything but an unknown id answers 200.
func (h *PaymentHandler) Status(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		var req struct {
			PaymentID string `json:"payment_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "payment_id required"})
			return
		}
		id = req.PaymentID
	}
	res, err := h.reconciler.PollForPayer(c.Request.Context(), id, middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			writeError(c, err)
			return
		}
		h.log.Error("status poll failed", zap.String("payment_id", id), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"approved": false, "status": "unknown"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get returns the caller's payment record.
func (h *PaymentHandler) Get(c *gin.Context) {
	rec, err := h.payments.GetForPayer(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
