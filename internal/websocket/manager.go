// Package websocket owns the transport side of the chat server: live
// connections, their read/write pumps, and the single-threaded broadcast
// loop that fans payloads out to target connections.
package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/damndeepesh/PingMeMaybe/internal/config"
)

// Envelope is a payload with its delivery scope. A nil Targets slice means
// every live connection.
type Envelope struct {
	Payload   []byte
	Targets   []string
	ExcludeID string
}

// SessionHandler is notified when a connection leaves the manager, whatever
// the reason (client disconnect, failed send, health check eviction).
type SessionHandler interface {
	HandleDisconnect(connID string)
}

// Manager manages WebSocket connections and payload fanout
type Manager struct {
	connections map[string]*Connection
	mutex       sync.RWMutex
	broadcast   chan *Envelope
	register    chan *Connection
	unregister  chan *Connection
	config      *config.ServerConfig
	metrics     *config.ServerMetrics
	session     SessionHandler
}

// NewManager creates a new connection manager
func NewManager(cfg *config.ServerConfig, metrics *config.ServerMetrics) *Manager {
	return &Manager{
		connections: make(map[string]*Connection),
		broadcast:   make(chan *Envelope, cfg.BroadcastBuffer),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		config:      cfg,
		metrics:     metrics,
	}
}

// SetSessionHandler wires the session layer that reacts to disconnects
func (m *Manager) SetSessionHandler(h SessionHandler) {
	m.session = h
}

// Run starts the manager's main loop. Broadcasts are dispatched from this
// single goroutine, which fixes the delivery order within each room.
func (m *Manager) Run() {
	if m.config.EnableHealthCheck {
		go m.runHealthCheck()
	}

	for {
		select {
		case conn := <-m.register:
			m.registerConnection(conn)

		case conn := <-m.unregister:
			m.unregisterConnection(conn)

		case env := <-m.broadcast:
			m.broadcastEnvelope(env)
		}
	}
}

// AddConnection wraps a raw WebSocket connection and registers it
func (m *Manager) AddConnection(conn *websocket.Conn, remoteAddr string) *Connection {
	c := NewConnection(conn, remoteAddr, m.config.SendBuffer)
	m.register <- c
	return c
}

// RemoveConnection removes a connection by ID
func (m *Manager) RemoveConnection(connID string) {
	m.mutex.RLock()
	conn, exists := m.connections[connID]
	m.mutex.RUnlock()

	if exists {
		m.unregister <- conn
	}
}

// ConnectionCount returns the number of live connections
func (m *Manager) ConnectionCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.connections)
}

// SendToConnections enqueues a payload for the given target connections
func (m *Manager) SendToConnections(targets []string, payload []byte, excludeID string) {
	if len(targets) == 0 {
		return
	}
	m.enqueue(&Envelope{Payload: payload, Targets: targets, ExcludeID: excludeID})
}

// SendToAll enqueues a payload for every live connection
func (m *Manager) SendToAll(payload []byte, excludeID string) {
	m.enqueue(&Envelope{Payload: payload, ExcludeID: excludeID})
}

// SendDirect delivers a payload to a single connection, bypassing the
// broadcast queue. Used for direct replies to the requester.
func (m *Manager) SendDirect(connID string, payload []byte) {
	m.mutex.RLock()
	conn, exists := m.connections[connID]
	m.mutex.RUnlock()

	if !exists {
		return
	}
	if !m.safeSend(conn, payload) {
		log.Printf("🔌 Dropping direct reply to unresponsive connection: %s", connID)
	}
}

// enqueue hands an envelope to the broadcast loop without blocking
func (m *Manager) enqueue(env *Envelope) {
	select {
	case m.broadcast <- env:
	default:
		log.Println("⚠️ Broadcast channel is full, dropping payload")
	}
}

// safeSend tries to queue a payload on a connection's send channel while the
// connection is still registered. Returns false when the connection is gone
// or its buffer is full.
func (m *Manager) safeSend(conn *Connection, payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Recovered from send on closed connection: %v", r)
		}
	}()

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if _, exists := m.connections[conn.ID]; !exists {
		return false
	}

	select {
	case conn.Send <- payload:
		conn.Health.RecordActivity()
		return true
	default:
		return false
	}
}

// registerConnection adds a new connection
func (m *Manager) registerConnection(conn *Connection) {
	m.mutex.Lock()

	// ตรวจสอบ connection limit
	if len(m.connections) >= m.config.MaxConnections {
		m.mutex.Unlock()
		log.Printf("❌ Connection limit reached, rejecting: %s", conn.RemoteAddr)
		conn.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "server full"))
		conn.Conn.Close()
		return
	}

	m.connections[conn.ID] = conn
	total := len(m.connections)
	m.mutex.Unlock()

	m.metrics.IncrementConnections()
	log.Printf("📝 Connection registered: %s (Total: %d/%d)", conn.ID, total, m.config.MaxConnections)
}

// unregisterConnection removes a connection and notifies the session layer
func (m *Manager) unregisterConnection(conn *Connection) {
	m.mutex.Lock()
	_, exists := m.connections[conn.ID]
	if exists {
		delete(m.connections, conn.ID)
	}
	m.mutex.Unlock()

	if !exists {
		return
	}

	close(conn.Send)
	m.metrics.DecrementConnections()
	log.Printf("🗑️ Connection unregistered: %s (Total: %d)", conn.ID, m.ConnectionCount())

	if m.session != nil {
		m.session.HandleDisconnect(conn.ID)
	}
}

// broadcastEnvelope sends a payload to the envelope's targets, skipping
// recipients that have become unreachable
func (m *Manager) broadcastEnvelope(env *Envelope) {
	targets := m.resolveTargets(env)

	sent := 0
	var failed []*Connection
	for _, conn := range targets {
		if m.safeSend(conn, env.Payload) {
			sent++
		} else {
			failed = append(failed, conn)
		}
	}

	m.metrics.IncrementBroadcasts()
	if env.ExcludeID != "" {
		log.Printf("📡 Broadcasted payload to %d connections (excluded: %s)", sent, env.ExcludeID)
	} else {
		log.Printf("📡 Broadcasted payload to %d connections", sent)
	}

	m.removeFailedConnections(failed)
}

// resolveTargets snapshots the connections an envelope addresses
func (m *Manager) resolveTargets(env *Envelope) []*Connection {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	var targets []*Connection
	if env.Targets == nil {
		targets = make([]*Connection, 0, len(m.connections))
		for connID, conn := range m.connections {
			if connID == env.ExcludeID {
				continue
			}
			targets = append(targets, conn)
		}
		return targets
	}

	targets = make([]*Connection, 0, len(env.Targets))
	for _, connID := range env.Targets {
		if connID == env.ExcludeID {
			continue
		}
		if conn, exists := m.connections[connID]; exists {
			targets = append(targets, conn)
		}
	}
	return targets
}

// removeFailedConnections evicts connections whose send buffers are full and
// lets the session layer clean up their room state
func (m *Manager) removeFailedConnections(failed []*Connection) {
	if len(failed) == 0 {
		return
	}

	m.mutex.Lock()
	var removed []*Connection
	for _, conn := range failed {
		if _, exists := m.connections[conn.ID]; exists {
			delete(m.connections, conn.ID)
			removed = append(removed, conn)
			log.Printf("🔌 Removed unresponsive connection: %s", conn.ID)
		}
	}
	m.mutex.Unlock()

	for _, conn := range removed {
		close(conn.Send)
		m.metrics.DecrementConnections()
		if m.session != nil {
			m.session.HandleDisconnect(conn.ID)
		}
	}
}

// runHealthCheck periodically sweeps unhealthy connections
func (m *Manager) runHealthCheck() {
	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	log.Printf("💓 Starting connection health monitor (interval: %v)", m.config.HealthCheckInterval)

	for range ticker.C {
		m.performHealthCheck()
	}
}

// performHealthCheck evicts connections that stopped answering pings
func (m *Manager) performHealthCheck() {
	m.mutex.RLock()
	var unhealthy []*Connection
	for _, conn := range m.connections {
		if !conn.IsHealthy(m.config.PongTimeout) {
			unhealthy = append(unhealthy, conn)
		}
	}
	m.mutex.RUnlock()

	for _, conn := range unhealthy {
		log.Printf("💔 Removing unhealthy connection: %s (missed pongs: %d)",
			conn.ID, conn.Health.GetStats().MissedPongs)
		m.unregister <- conn
	}
}
