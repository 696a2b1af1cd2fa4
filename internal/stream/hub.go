// Package stream pushes committed settlement events to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/pkg/logger"
	"github.com/nomadz/paygate/internal/service"
)

const (
	PingPeriod  = 15 * time.Second // Keep-alive interval
	WriteWait   = 10 * time.Second
	PongWait    = 2 * PingPeriod
	SendBufSize = 64
)

// Message is the wire form of a service.Event.
type Message struct {
	Type    string                        `json:"type"`
	At      time.Time                     `json:"at"`
	Booking *service.BookingPaymentRecord `json:"booking,omitempty"`
	Config  *model.Config                 `json:"config,omitempty"`
}

type client struct {
	conn  *websocket.Conn
	send  chan []byte
	payer *model.Pubkey // nil = every event
}

func (c *client) wants(evt service.Event) bool {
	if c.payer == nil {
		return true
	}
	return evt.Booking != nil && evt.Booking.Payer == *c.payer
}

// Hub fans events out to connected clients. It implements service.Emitter.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Hub) Emit(_ context.Context, evt service.Event) {
	payload, err := json.Marshal(Message{Type: evt.Type, At: evt.At, Booking: evt.Booking, Config: evt.Config})
	if err != nil {
		logger.Error("Failed to encode event", "event", evt.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(evt) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// queue full: this subscriber misses the event, the connection stays open
			logger.Warn("Event subscriber too slow, dropping event", "event", evt.Type, "remote", c.conn.RemoteAddr().String())
		}
	}
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handle upgrades GET /v1/ops/events?payer= to a websocket subscription.
func (h *Hub) Handle(c *gin.Context) {
	var payer *model.Pubkey
	if raw := c.Query("payer"); raw != "" {
		pk, err := model.ParsePubkey(raw)
		if err != nil {
			c.Error(apperrors.NewInvalidRequest("invalid payer: " + err.Error()))
			return
		}
		payer = &pk
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error
		logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, SendBufSize), payer: payer}
	h.register(cl)
	logger.Info("Event subscriber connected", "remote", conn.RemoteAddr().String())

	go h.writeLoop(cl)
	h.readLoop(cl)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// readLoop only services control frames; subscribers never send data.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(PongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("Event subscriber read failed", "error", err)
			}
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ service.Emitter = (*Hub)(nil)
