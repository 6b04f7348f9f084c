package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/heartlink/discovery/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced by the gateway in front of us.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSHandler upgrades an authenticated request to a WebSocket session and
// parks it in the hub until the peer disconnects.
func WSHandler(hub *session.Hub, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := CallerID(c)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "user_id", userID, "err", err)
			return
		}

		client := session.NewClient(conn, userID)
		if !hub.Register(client) {
			client.Close()
			return
		}
		log.Debug("websocket session opened",
			"user_id", userID, "session_id", client.SessionID())

		client.Run(func() {
			hub.Unregister(client)
			log.Debug("websocket session closed",
				"user_id", userID, "session_id", client.SessionID())
		})
	}
}
