package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nmurali/signbridge/internal/logging"
)

// writeWait bounds a single WebSocket write so one stalled client
// cannot hold up the pipeline goroutine that broadcasts events.
const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Hub pushes pipeline events to connected dashboard clients. Every
// message is a JSON object of the form
//
//	{"type": "translation", "data": {...}, "timestamp": 1700000000000}
//
// where type is the event name and timestamp is in Unix milliseconds.
type Hub struct {
	logger  *slog.Logger
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

// NewHub creates a Hub with no connected clients.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logging.WithComponent(logger, "events"),
		clients: make(map[*websocket.Conn]bool),
	}
}

// ServeHTTP upgrades the request to a WebSocket and keeps the
// connection registered until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Clients never send anything meaningful; reading just detects
	// disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast sends one event to every connected client. Clients whose
// writes fail are dropped.
func (h *Hub) Broadcast(event string, data any) {
	msg, err := json.Marshal(map[string]any{
		"type":      event,
		"data":      data,
		"timestamp": time.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Warn("failed to encode event", slog.String("type", event), logging.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
