// Package ws streams emotion frames over a websocket so capture clients
// avoid per-frame HTTP overhead. Each inbound frame takes the same ingest
// path as the REST endpoint and is acknowledged per message.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	service "github.com/okian/aula/internal/app"
	"github.com/okian/aula/internal/domain/model"
	"github.com/okian/aula/pkg/logger"
	"github.com/okian/aula/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 256

	msgTypeFrame = "frame"
	msgTypePing  = "ping"
)

// Ingestor accepts frames for asynchronous persistence.
type Ingestor interface {
	Ingest(ctx context.Context, frame model.EmotionFrame) error
}

// message is the wire envelope in both directions.
type message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	ClientID  string          `json:"client_id,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// framePayload mirrors the REST frame payload; "timestamp" is the capture
// instant and the per-session dedupe key.
type framePayload struct {
	UserID    int64              `json:"user_id"`
	SessionID string             `json:"session_id"`
	Emotions  map[string]float64 `json:"emotions"`
	Timestamp float64            `json:"timestamp"`
}

// ack is the per-frame response payload. Every frame ack carries a unique
// receipt so clients can match acks to in-flight frames.
type ack struct {
	Type      string `json:"type"`
	Status    string `json:"status"`
	Receipt   string `json:"receipt,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	id   string
	send chan any
}

// Handler upgrades connections and tracks the active clients.
type Handler struct {
	ingestor Ingestor

	mu      sync.RWMutex
	clients map[string]*client

	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewHandler creates a websocket ingest handler.
func NewHandler(ingestor Ingestor) *Handler {
	return &Handler{
		ingestor: ingestor,
		clients:  make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The capture page is served from a different origin in dev.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Get().Named("ws"),
	}
}

// HandleStream handles GET /ws/emotions upgrades.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		metrics.RecordWSError()
		return
	}

	c := &client{
		conn: conn,
		id:   uuid.NewString(),
		send: make(chan any, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	metrics.WSConnectionOpened()

	h.logger.Info(r.Context(), "websocket client connected", logger.String("client_id", c.id))

	// Queue the greeting before the pumps start so it cannot race the
	// teardown path closing the send channel.
	c.send <- ack{
		Type:      "welcome",
		Status:    "connected",
		ClientID:  c.id,
		Timestamp: time.Now().Unix(),
	}

	go h.writePump(c)
	go h.readPump(r.Context(), c)
}

func (h *Handler) readPump(ctx context.Context, c *client) {
	defer h.drop(ctx, c)

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn(ctx, "websocket read failed",
					logger.String("client_id", c.id),
					logger.Error(err),
				)
				metrics.RecordWSError()
			}
			return
		}
		metrics.RecordWSMessage()

		switch msg.Type {
		case msgTypePing:
			c.send <- ack{Type: "pong", ClientID: c.id, Timestamp: time.Now().Unix()}
		case msgTypeFrame:
			h.handleFrame(ctx, c, msg.Payload)
		default:
			c.send <- ack{Type: "error", Status: "unknown message type", Timestamp: time.Now().Unix()}
		}
	}
}

func (h *Handler) handleFrame(ctx context.Context, c *client, payload json.RawMessage) {
	var fp framePayload
	if err := json.Unmarshal(payload, &fp); err != nil {
		metrics.RecordWSError()
		c.send <- ack{Type: "error", Status: "malformed frame", Timestamp: time.Now().Unix()}
		return
	}
	if fp.UserID == 0 || fp.SessionID == "" || len(fp.Emotions) == 0 {
		metrics.RecordWSError()
		c.send <- ack{Type: "error", Status: "missing frame fields", Timestamp: time.Now().Unix()}
		return
	}

	frame := model.EmotionFrame{
		UserID:     fp.UserID,
		SessionID:  fp.SessionID,
		Emotions:   fp.Emotions,
		CapturedAt: fp.Timestamp,
	}
	receipt := uuid.NewString()
	err := h.ingestor.Ingest(ctx, frame)
	switch {
	case err == nil:
		c.send <- ack{Type: "frame_ack", Status: "received", Receipt: receipt, Timestamp: time.Now().Unix()}
	case errors.Is(err, service.ErrDuplicateFrame):
		c.send <- ack{Type: "frame_ack", Status: "duplicate", Receipt: receipt, Duplicate: true, Timestamp: time.Now().Unix()}
	case errors.Is(err, service.ErrQueueFull):
		c.send <- ack{Type: "frame_ack", Status: "backpressure", Receipt: receipt, Timestamp: time.Now().Unix()}
	default:
		metrics.RecordWSError()
		c.send <- ack{Type: "error", Status: "ingest failed", Timestamp: time.Now().Unix()}
	}
}

func (h *Handler) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drop unregisters and closes one client.
func (h *Handler) drop(ctx context.Context, c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		metrics.WSConnectionClosed()
	}
	h.mu.Unlock()

	_ = c.conn.Close()
	h.logger.Info(ctx, "websocket client disconnected", logger.String("client_id", c.id))
}

// ClientCount returns the number of connected clients.
func (h *Handler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// CloseAll disconnects every client. Used during shutdown.
func (h *Handler) CloseAll(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Closing the connection unwinds both pumps; the send channel is left
	// to the collector so in-flight acks cannot hit a closed channel.
	for id, c := range h.clients {
		_ = c.conn.Close()
		metrics.WSConnectionClosed()
		h.logger.Debug(ctx, "closed websocket client", logger.String("client_id", id))
	}
	h.clients = make(map[string]*client)
}
