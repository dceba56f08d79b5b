package ws

import (
	"context"
	"encoding/json"
	"sync"

	"paysync/pkg/events"
)

// Client represents a single WebSocket connection owned by one payer.
type Client struct {
	UserID uint
	Send   chan []byte
	Hub    *Hub // set by Register so Close can unregister
	mu     sync.Mutex
	closed bool
}

func NewClient(userID uint) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 64)}
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
	close(c.Send)
}

// Hub tracks connected payers and pushes payment status changes to them.
// It satisfies events.Publisher.
type Hub struct {
	mu sync.RWMutex
	// userID -> clients (one payer can have several tabs open)
	byUser map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// BroadcastToUser sends payload to every connection of userID. Slow clients
// drop messages rather than block the caller.
func (h *Hub) BroadcastToUser(userID uint, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	// Sends happen under the read lock so Close cannot close a channel mid-send.
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.byUser[userID] {
		select {
		case c.Send <- data:
		default:
		}
	}
	return nil
}

type statusMessage struct {
	Type string              `json:"type"`
	Data events.PaymentEvent `json:"data"`
}

// Publish pushes a transition to the payer's open connections.
func (h *Hub) Publish(_ context.Context, evt events.PaymentEvent) error {
	return h.BroadcastToUser(evt.PayerID, statusMessage{Type: "payment.status", Data: evt})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.byUser {
		n += len(m)
	}
	return n
}
