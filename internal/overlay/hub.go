// Package overlay pushes selected stories to the broadcast overlay pages over
// WebSocket. Each connected page advertises which presentation strategies it
// can render; a strategy is available while at least one such page is online.
package overlay

import (
	"sync"

	"million-words-server/internal/scheduler"

	"go.uber.org/zap"
)

// Hub управляет активными WebSocket соединениями оверлеев.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	closeOnce  sync.Once
	mu         sync.RWMutex
	logger     *zap.Logger
}

// NewHub creates a Hub and starts its registration loop.
func NewHub(logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.Named("OverlayHub"),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, c := range h.clients {
				delete(h.clients, id)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.ID] = c
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Overlay connected", zap.String("clientID", c.ID), zap.Strings("targets", c.targetNames()), zap.Int("clients", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.ID]; ok && cur == c {
				delete(h.clients, c.ID)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Overlay disconnected", zap.String("clientID", c.ID), zap.Int("clients", total))
		}
	}
}

// Register adds a client. It reports false after Close, when the client was
// not added.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes its send queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Close disconnects every client and stops the loop.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected overlays.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Supports reports whether any connected overlay renders the strategy.
func (h *Hub) Supports(strategy scheduler.Strategy) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.supports(strategy) {
			return true
		}
	}
	return false
}

// Broadcast queues message for every overlay that renders strategy and
// returns how many accepted it. Overlays with a full queue are skipped.
func (h *Hub) Broadcast(strategy scheduler.Strategy, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, c := range h.clients {
		if !c.supports(strategy) {
			continue
		}
		select {
		case c.send <- message:
			sent++
		default:
			h.logger.Warn("Overlay send queue is full, dropping message", zap.String("clientID", c.ID))
		}
	}
	return sent
}
