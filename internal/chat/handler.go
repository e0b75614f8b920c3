package chat

import (
	"log"
	"net/http"

	gorilla "github.com/gorilla/websocket"

	"github.com/damndeepesh/PingMeMaybe/internal/config"
	ws "github.com/damndeepesh/PingMeMaybe/internal/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// LAN server: ทุก origin ใช้ได้
		return true
	},
}

// Handler upgrades HTTP requests to WebSocket sessions
type Handler struct {
	manager *ws.Manager
	service *Service
	config  *config.ServerConfig
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *ws.Manager, service *Service, cfg *config.ServerConfig) *Handler {
	return &Handler{
		manager: manager,
		service: service,
		config:  cfg,
	}
}

// ServeWS upgrades the request and starts the connection's read and write
// pumps. The session layer sees the connection as anonymous until it joins a
// room.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ WebSocket upgrade failed: %v", err)
		return
	}

	c := h.manager.AddConnection(conn, r.RemoteAddr)
	h.service.HandleConnect(c.ID)

	go c.WritePump(h.config)
	go c.ReadPump(h.config, h.service.HandleEvent, func() {
		h.manager.RemoveConnection(c.ID)
		// RemoveConnection is a no-op for connections the manager rejected
		// at the limit; the session layer still has to forget them.
		h.service.HandleDisconnect(c.ID)
	})
}
