package handlers

import (
	"net/http"

	gws "github.com/gorilla/websocket"

	"scenewatch/internal/logger"
	"scenewatch/internal/services/websocket"
)

var upgrader = gws.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler upgrades the connection and registers the viewer
// with the hub. Annotated frames from live sessions arrive as text
// messages until the client disconnects.
func ViewWebsocketHandler(hub *websocket.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("Websocket upgrade failed: %v", err)
			return
		}

		hub.Register(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister(conn)
				break
			}
		}
	}
}
