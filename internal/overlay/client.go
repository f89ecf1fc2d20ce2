package overlay

import (
	"strings"
	"time"

	"million-words-server/internal/scheduler"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время ожидания следующего pong.
	pongWait = 60 * time.Second
	// Период пингов, должен быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Overlays only send pings and acks.
	maxMessageSize = 512
	sendQueueSize  = 64
)

// Client is one connected overlay page.
type Client struct {
	ID      string
	conn    *websocket.Conn
	targets map[scheduler.Strategy]struct{}
	send    chan []byte
}

// NewClient creates a client for conn. The ticker target is always included.
func NewClient(id string, conn *websocket.Conn, targets []scheduler.Strategy) *Client {
	set := map[scheduler.Strategy]struct{}{scheduler.FallbackStrategy: {}}
	for _, t := range targets {
		set[t] = struct{}{}
	}
	return &Client{
		ID:      id,
		conn:    conn,
		targets: set,
		send:    make(chan []byte, sendQueueSize),
	}
}

// ParseTargets reads the comma separated targets query parameter.
func ParseTargets(raw string) []scheduler.Strategy {
	if raw == "" {
		return nil
	}
	return scheduler.ParseStrategies(strings.Split(strings.ReplaceAll(raw, " ", ""), ","))
}

func (c *Client) supports(s scheduler.Strategy) bool {
	_, ok := c.targets[s]
	return ok
}

func (c *Client) targetNames() []string {
	names := make([]string, 0, len(c.targets))
	for t := range c.targets {
		names = append(names, string(t))
	}
	return names
}

// readPump drains incoming frames so control messages are processed.
func (c *Client) readPump(hub *Hub, logger *zap.Logger) {
	defer func() {
		hub.Unregister(c)
		_ = c.conn.Close()
		logger.Debug("readPump finished")
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump sends queued messages, one JSON document per frame, and pings.
func (c *Client) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		logger.Debug("writePump finished")
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Warn("Failed to send ping", zap.Error(err))
				return
			}
		}
	}
}
