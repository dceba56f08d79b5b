package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProvider_CreateSession(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_1","url":"https://pay.example/cs_1"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL + "/", AccessToken: "tok", Timeout: time.Second})
	sess, err := p.CreateSession(context.Background(), SessionRequest{
		Amount:            decimal.RequireFromString("150"),
		Currency:          "BRL",
		Installments:      3,
		ExternalReference: "pay-1",
		Metadata:          Metadata{PaymentID: "pay-1", PayerID: "7", Purpose: "checkout"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)
	assert.Equal(t, "https://pay.example/cs_1", sess.RedirectURL)

	assert.Equal(t, 150.0, got["amount"])
	assert.Equal(t, "pay-1", got["external_reference"])
	assert.Equal(t, map[string]interface{}{"payment_id": "pay-1", "payer_id": "7", "purpose": "checkout"}, got["metadata"])
}

func TestHTTPProvider_CreateSessionServerError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL, Retries: 2, Timeout: time.Second})
	_, err := p.CreateSession(context.Background(), SessionRequest{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "session creation is not retried")
}

func TestHTTPProvider_CreateSessionClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid amount"}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL, Timeout: time.Second})
	_, err := p.CreateSession(context.Background(), SessionRequest{Amount: decimal.NewFromInt(1)})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "422")
}

func TestHTTPProvider_SearchPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments/search", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "pay-1", q.Get("external_reference"))
		assert.Equal(t, "desc", q.Get("criteria"))
		assert.Equal(t, "5", q.Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"id":111,"status":"REJECTED","external_reference":"pay-1","transaction_amount":150,"date_created":"2024-05-01T10:00:00Z"},
			{"id":"222","status":"approved","status_detail":"accredited","external_reference":"pay-1","transaction_amount":150.00,"date_created":"2024-05-01T10:05:00Z"}
		]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL, Timeout: time.Second})
	list, err := p.SearchPayments(context.Background(), "pay-1", 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "222", list[0].ID, "newest first")
	assert.Equal(t, "approved", list[0].Status)
	assert.Equal(t, "accredited", list[0].StatusDetail)
	assert.Equal(t, "111", list[1].ID)
	assert.Equal(t, "rejected", list[1].Status)
	assert.True(t, decimal.NewFromInt(150).Equal(list[1].Amount))
}

func TestHTTPProvider_SearchRetriesServerErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL, Retries: 2, Timeout: time.Second})
	list, err := p.SearchPayments(context.Background(), "pay-1", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestHTTPProvider_SearchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPProviderConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := p.SearchPayments(ctx, "pay-1", 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}
