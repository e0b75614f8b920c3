package websocket

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/damndeepesh/PingMeMaybe/internal/config"
)

// maxFrameSize caps a single inbound WebSocket frame
const maxFrameSize = 64 * 1024

// Connection represents one live WebSocket connection with metadata
type Connection struct {
	ID         string
	Conn       *websocket.Conn
	RemoteAddr string
	Send       chan []byte
	Health     *config.ConnectionHealth
}

// NewConnection wraps a raw WebSocket connection with a unique ID and a
// buffered send channel
func NewConnection(conn *websocket.Conn, remoteAddr string, sendBuffer int) *Connection {
	return &Connection{
		ID:         uuid.NewString(),
		Conn:       conn,
		RemoteAddr: remoteAddr,
		Send:       make(chan []byte, sendBuffer),
		Health:     config.NewConnectionHealth(),
	}
}

// ReadPump reads frames from the client and hands them to the session layer.
// done runs exactly once when the connection stops reading, before the
// underlying connection is closed.
func (c *Connection) ReadPump(cfg *config.ServerConfig, handle func(connID string, raw []byte), done func()) {
	defer func() {
		done()
		c.Conn.Close()
		log.Printf("🔌 Connection closed: %s (ID: %s)", c.RemoteAddr, c.ID)
	}()

	c.Conn.SetReadLimit(maxFrameSize)
	c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Health.RecordPong()
		c.Conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocket error from %s: %v", c.RemoteAddr, err)
			}
			break
		}

		c.Health.RecordActivity()
		handle(c.ID, raw)
	}
}

// WritePump drains the send channel to the client and keeps the connection
// alive with periodic pings
func (c *Connection) WritePump(cfg *config.ServerConfig) {
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				// Channel ถูกปิดโดย manager
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("❌ Failed to send message to %s: %v", c.RemoteAddr, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("❌ Failed to send ping to %s: %v", c.RemoteAddr, err)
				return
			}
			c.Health.RecordPing()
		}
	}
}

// IsHealthy checks if the connection is healthy
func (c *Connection) IsHealthy(pongTimeout time.Duration) bool {
	return c.Health.CheckHealth(pongTimeout)
}
