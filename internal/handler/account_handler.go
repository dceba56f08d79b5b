package handler

import (
	"errors"
	"net/http"

	"paysync/internal/middleware"
	"paysync/internal/repository"

	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	payers *repository.PayerAccountRepository
}

func NewAccountHandler(payers *repository.PayerAccountRepository) *AccountHandler {
	return &AccountHandler{payers: payers}
}

// Get returns the caller's running total and payment flag.
func (h *AccountHandler) Get(c *gin.Context) {
	a, err := h.payers.GetByUserID(c.Request.Context(), middleware.GetUserID(c))
	if errors.Is(err, repository.ErrPayerNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "account error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_paid":     a.TotalPaid.StringFixed(2),
		"payment_status": a.PaymentStatus,
		"currency":       a.Currency,
	})
}
