package handler

import (
	"net/http"

	"paysync/internal/domain"
	"paysync/internal/middleware"
	"paysync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Create starts a hosted checkout for the authenticated payer and returns the
// redirect URL together with the internal payment id.
func (h *CheckoutHandler) Create(c *gin.Context) {
	payerID := middleware.GetUserID(c)
	var req struct {
		Amount       decimal.Decimal `json:"amount"`
		PayerID      uint            `json:"payer_id"` // optional; must match the token when present
		Installments int             `json:"installments"`
		Method       string          `json:"method"`
		Description  string          `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.PayerID != 0 && req.PayerID != payerID {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	res, err := h.checkout.Initiate(c.Request.Context(), service.CheckoutRequest{
		PayerID:      payerID,
		Amount:       req.Amount,
		Installments: req.Installments,
		Method:       req.Method,
		Description:  req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
