package handler

import (
	"net/http"

	"campusmarket/backend/internal/auth"
	"campusmarket/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers authenticate with the token query parameter; origin is not
	// used for authorization.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades an authenticated request to a live-feed socket.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	userID := auth.UserID(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.Logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := chathub.NewWebSocketClient(userID, conn, h.Hub, h.Logger)
	h.Hub.Register(client)
	client.Run()
}
