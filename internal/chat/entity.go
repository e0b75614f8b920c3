package chat

import (
	"encoding/json"
	"time"
)

// Client event types
const (
	EventJoinRoom          = "join-room"
	EventSendMessage       = "send-message"
	EventGetOnlineUsers    = "get-online-users"
	EventGetAvailableRooms = "get-available-rooms"
)

// Server event types
const (
	EventNewMessage   = "new-message"
	EventUserJoined   = "user-joined"
	EventUserLeft     = "user-left"
	EventOnlineUsers  = "online-users"
	EventRoomsUpdated = "rooms-updated"
)

// UserInfo is the public identity of a connected user
type UserInfo struct {
	Nickname  string `json:"nickname"`
	IPAddress string `json:"ipAddress"`
}

// Message represents a persisted chat message
type Message struct {
	ID        string    `json:"id,omitempty"`
	RoomID    string    `json:"roomId"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Type      string    `json:"type,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ClientEvent is the envelope for events received from clients.
// Data is kept raw so send-message payloads can be relayed verbatim.
type ClientEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ServerEvent is the envelope for events sent to clients
type ServerEvent struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// JoinRoomPayload carries a join-room request
type JoinRoomPayload struct {
	RoomID    string `json:"roomId"`
	Nickname  string `json:"nickname"`
	IPAddress string `json:"ipAddress"`
}

// RoomPayload carries events that only reference a room
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// UserLeftPayload carries just enough to remove one roster row.
// Address only: two users may share a nickname.
type UserLeftPayload struct {
	IPAddress string `json:"ipAddress"`
}
