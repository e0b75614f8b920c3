package chat

import (
	"context"
	"time"
)

// UserRecord is a persisted user identity keyed by network address
type UserRecord struct {
	ID        string    `json:"id"`
	IPAddress string    `json:"ipAddress"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MessageStore handles message persistence
type MessageStore interface {
	ListMessages(ctx context.Context, roomID string) ([]*Message, error)
	CreateMessage(ctx context.Context, roomID, sender, content, msgType string) (*Message, error)
	ListDistinctRooms(ctx context.Context) ([]string, error)
}

// UserStore handles user persistence
type UserStore interface {
	UpsertUser(ctx context.Context, ipAddress, nickname string) (*UserRecord, error)
}

// Registry tracks live connections, their rooms, and per-room presence
type Registry interface {
	Register(connID string)
	JoinRoom(connID, roomID string, info UserInfo) (oldRoom string)
	Unregister(connID string) (roomID string, info UserInfo, hadRoom bool)
	ConnectionsInRoom(roomID string) []string
	OnlineUsers(roomID string) []UserInfo
}

// Directory maintains the global set of known room identifiers
type Directory interface {
	EnsureKnown(roomID string) bool
	ListKnown() []string
}

// Broadcaster delivers encoded payloads to live connections
type Broadcaster interface {
	SendToConnections(targets []string, payload []byte, excludeID string)
	SendToAll(payload []byte, excludeID string)
	SendDirect(connID string, payload []byte)
}
