package overlay

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades overlay pages to WebSocket connections.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a Handler. allowedOrigins of nil or containing "*"
// accepts any origin, which OBS browser sources need.
func NewHandler(hub *Hub, allowedOrigins []string, logger *zap.Logger) *Handler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger.Named("OverlayHandler"),
	}
}

// ServeWS handles GET /ws/overlay?targets=ticker,side-overlay,takeover.
func (h *Handler) ServeWS(c *gin.Context) {
	targets := ParseTargets(c.Query("targets"))

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrader уже записал ответ
		h.logger.Warn("Failed to upgrade overlay connection", zap.Error(err))
		return
	}

	client := NewClient(uuid.NewString(), conn, targets)
	logger := h.logger.With(zap.String("clientID", client.ID))
	if !h.hub.Register(client) {
		logger.Info("Overlay hub is closed, dropping connection")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go client.writePump(logger)
	go client.readPump(h.hub, logger)
}
