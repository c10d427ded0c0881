package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gocomet/rideshare/internal/api/middleware"
	"github.com/gocomet/rideshare/pkg/logger"
	"github.com/gocomet/rideshare/pkg/websocket"
)

// HandleWebSocket handles GET /v1/ws. The caller is taken from the token,
// so a client only ever receives its own notifications.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Error("Failed to upgrade to WebSocket", logger.Err(err))
		return
	}

	userID := middleware.UserID(c)
	client := websocket.NewClient(h.Hub, conn, userID.String(), string(middleware.RoleOf(c)), h.Logger)
	h.Hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
