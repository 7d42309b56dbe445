package handlers

import (
	"net/http"
	"time"
	"yolodetector/internal/logger"
	hub "yolodetector/internal/services/websocket"

	"github.com/gorilla/websocket"
)

const (
	// pongWait is how long a viewer may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = pongWait * 9 / 10
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler registers preview viewers with the hub so they receive
// every annotated frame.
func ViewWebsocketHandler(h *hub.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(pongWait))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		if !h.Register(connection) {
			logger.Warning("Preview stopped, rejecting viewer %s", r.RemoteAddr)
			return
		}
		defer h.Unregister(connection)

		stopPing := make(chan struct{})
		defer close(stopPing)
		go keepAlive(connection, pingPeriod, stopPing)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}

// keepAlive pings the viewer so its pong handler keeps extending the read
// deadline. WriteControl may run concurrently with the hub's writes.
func keepAlive(connection *websocket.Conn, period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := connection.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
