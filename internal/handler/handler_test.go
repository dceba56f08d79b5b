package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"paysync/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrInvalidInstallments, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrRecordNotFound, http.StatusNotFound},
		{fmt.Errorf("%w: timeout", domain.ErrProviderUnavailable), http.StatusBadGateway},
		{fmt.Errorf("%w: bad mac", domain.ErrSignatureInvalid), http.StatusUnauthorized},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		writeError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}

func TestWriteError_SignatureBody(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	writeError(c, domain.ErrSignatureInvalid)
	assert.JSONEq(t, `{"error":"invalid signature"}`, w.Body.String())
}

func TestCheckoutHandler_RejectsMalformedBody(t *testing.T) {
	h := NewCheckoutHandler(nil)
	r := gin.New()
	r.POST("/checkout", func(c *gin.Context) { c.Set("user_id", uint(1)) }, h.Create)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"amount":`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"amount":"10.00","payer_id":2}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "payer_id must match the token")
}

func TestWebhookHandler_RejectsOversizedBody(t *testing.T) {
	h := NewWebhookHandler(nil, "")
	r := gin.New()
	r.POST("/webhooks/payment", h.Handle)

	body := `{"id":"evt_big","type":"checkout_completed","pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set("X-Webhook-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"payload too large"}`, w.Body.String())
}
