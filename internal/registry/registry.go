// Package registry tracks which live connection belongs to which room and
// derives per-room presence from that membership. All state is in-memory and
// guarded by a single mutex so presence entries always mirror registry
// membership, even under concurrent joins.
package registry

import (
	"sync"

	"github.com/damndeepesh/PingMeMaybe/internal/chat"
)

// entry holds the registry's view of one connection
type entry struct {
	room string
	info chat.UserInfo
}

// Registry implements chat.Registry with in-memory maps
type Registry struct {
	mutex       sync.RWMutex
	connections map[string]*entry
	presence    map[string]map[string]chat.UserInfo // roomID -> connID -> info
}

// New creates an empty connection registry
func New() *Registry {
	return &Registry{
		connections: make(map[string]*entry),
		presence:    make(map[string]map[string]chat.UserInfo),
	}
}

// Register adds a connection with no room. Idempotent per connection ID.
func (r *Registry) Register(connID string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.connections[connID]; exists {
		return
	}
	r.connections[connID] = &entry{}
}

// JoinRoom moves a connection into roomID and records its user info.
// Returns the room the connection was in before, or "" if it had none.
// A connection that was never registered is registered implicitly.
func (r *Registry) JoinRoom(connID, roomID string, info chat.UserInfo) string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e, exists := r.connections[connID]
	if !exists {
		e = &entry{}
		r.connections[connID] = e
	}

	oldRoom := e.room
	if oldRoom != "" && oldRoom != roomID {
		r.removePresence(connID, oldRoom)
	}

	e.room = roomID
	e.info = info

	room := r.presence[roomID]
	if room == nil {
		room = make(map[string]chat.UserInfo)
		r.presence[roomID] = room
	}
	room[connID] = info

	return oldRoom
}

// Unregister removes a connection and its presence entry.
// Unknown connection IDs are a no-op with hadRoom false.
func (r *Registry) Unregister(connID string) (string, chat.UserInfo, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	e, exists := r.connections[connID]
	if !exists {
		return "", chat.UserInfo{}, false
	}

	delete(r.connections, connID)
	if e.room == "" {
		return "", chat.UserInfo{}, false
	}

	r.removePresence(connID, e.room)
	return e.room, e.info, true
}

// ConnectionsInRoom returns a snapshot of connection IDs currently in the room
func (r *Registry) ConnectionsInRoom(roomID string) []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	room := r.presence[roomID]
	ids := make([]string, 0, len(room))
	for connID := range room {
		ids = append(ids, connID)
	}
	return ids
}

// OnlineUsers returns a snapshot of the presence set for the room.
// Unknown rooms yield an empty slice, not an error.
func (r *Registry) OnlineUsers(roomID string) []chat.UserInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	room := r.presence[roomID]
	users := make([]chat.UserInfo, 0, len(room))
	for _, info := range room {
		users = append(users, info)
	}
	return users
}

// ConnectionCount returns the number of registered connections
func (r *Registry) ConnectionCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.connections)
}

// removePresence drops one presence entry and reclaims empty room maps.
// Assumes the mutex is held.
func (r *Registry) removePresence(connID, roomID string) {
	room, exists := r.presence[roomID]
	if !exists {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.presence, roomID)
	}
}
