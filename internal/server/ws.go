package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ayusman/beltcount/internal/live"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// StatusHandler broadcasts live run status via WebSocket, one message per
// processed frame.
type StatusHandler struct {
	hub     *live.Hub
	logger  *zap.SugaredLogger
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
	cancel  func()
	done    chan struct{}
}

// NewStatusHandler creates a StatusHandler and starts broadcasting.
func NewStatusHandler(hub *live.Hub, logger *zap.SugaredLogger) *StatusHandler {
	updates, cancel := hub.Subscribe()

	h := &StatusHandler{
		hub:     hub,
		logger:  logger,
		clients: make(map[*websocket.Conn]bool),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.broadcast(updates)
	return h
}

// ServeHTTP handles WebSocket upgrade requests. The current status is sent
// immediately on connect.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	msg, _ := json.Marshal(h.hub.Status())
	conn.WriteMessage(websocket.TextMessage, msg)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// broadcast sends each status update to all connected clients.
func (h *StatusHandler) broadcast(updates <-chan live.Status) {
	defer close(h.done)

	for status := range updates {
		msg, err := json.Marshal(status)
		if err != nil {
			continue
		}

		h.mu.Lock()
		for conn := range h.clients {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debugf("websocket write error: %v", err)
			}
		}
		h.mu.Unlock()
	}
}

// Clients returns the number of connected clients.
func (h *StatusHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcaster.
func (h *StatusHandler) Close() {
	h.cancel()
	<-h.done
}
