package handler

import (
	"errors"
	"io"
	"net/http"

	"paysync/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	receiver        *service.WebhookReceiver
	signatureHeader string
}

func NewWebhookHandler(receiver *service.WebhookReceiver, signatureHeader string) *WebhookHandler {
	if signatureHeader == "" {
		signatureHeader = "X-Webhook-Signature"
	}
	return &WebhookHandler{receiver: receiver, signatureHeader: signatureHeader}
}

// Handle answers 401 when the signature fails, 413 when the body is over
// maxWebhookBody, and {"received": true} for everything else, including events
// that were ignored or failed to apply.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if _, err := h.receiver.Receive(c.Request.Context(), body, c.GetHeader(h.signatureHeader)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
