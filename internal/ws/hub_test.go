package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"paysync/config"
	"paysync/internal/auth"
	"paysync/pkg/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyThePayer(t *testing.T) {
	h := NewHub()
	mine := NewClient(1)
	mineTab2 := NewClient(1)
	theirs := NewClient(2)
	h.Register(mine)
	h.Register(mineTab2)
	h.Register(theirs)
	assert.Equal(t, 3, h.ClientCount())

	require.NoError(t, h.Publish(context.Background(), events.PaymentEvent{PaymentID: "p1", PayerID: 1, Status: "approved"}))

	for _, c := range []*Client{mine, mineTab2} {
		select {
		case msg := <-c.Send:
			var got statusMessage
			require.NoError(t, json.Unmarshal(msg, &got))
			assert.Equal(t, "payment.status", got.Type)
			assert.Equal(t, "p1", got.Data.PaymentID)
		default:
			t.Fatal("expected a message")
		}
	}
	assert.Empty(t, theirs.Send)

	mine.Close()
	mine.Close()
	assert.Equal(t, 2, h.ClientCount())
	theirs.Close()
	mineTab2.Close()
	assert.Equal(t, 0, h.ClientCount())
	assert.NoError(t, h.Publish(context.Background(), events.PaymentEvent{PayerID: 1}))
}

func TestUpgradePaymentsWS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.JWTConfig{AccessSecret: "s", AccessExpiry: time.Minute}
	h := NewHub()
	r := gin.New()
	r.GET("/ws/payments", UpgradePaymentsWS(cfg, h))
	srv := httptest.NewServer(r)
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/payments"

	_, resp, err := websocket.DefaultDialer.Dial(base+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, err := auth.GenerateAccessToken(cfg, 9)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(base+"?token="+tok, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, h.Publish(context.Background(), events.PaymentEvent{PaymentID: "p9", PayerID: 9, Status: "approved"}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), `"payment_id":"p9"`)
}
