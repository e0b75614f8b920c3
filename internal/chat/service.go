// Package chat implements the session protocol each connection follows:
// connect, join a room, exchange messages and presence queries, disconnect.
// It owns the broadcast rules for messages, roster changes, and room
// discovery updates.
package chat

import (
	"encoding/json"
	"log"

	"github.com/damndeepesh/PingMeMaybe/internal/config"
	"github.com/damndeepesh/PingMeMaybe/internal/security"
)

// Service routes client events through the registry, directory, and
// broadcaster. A fault handling one connection's event never propagates to
// other connections: malformed payloads are dropped at this boundary.
type Service struct {
	registry    Registry
	directory   Directory
	broadcaster Broadcaster
	validator   *security.InputValidator
	metrics     *config.ServerMetrics
}

// NewService creates a new session protocol service
func NewService(registry Registry, directory Directory, broadcaster Broadcaster, validator *security.InputValidator, metrics *config.ServerMetrics) *Service {
	return &Service{
		registry:    registry,
		directory:   directory,
		broadcaster: broadcaster,
		validator:   validator,
		metrics:     metrics,
	}
}

// HandleConnect registers a new anonymous connection
func (s *Service) HandleConnect(connID string) {
	s.registry.Register(connID)
}

// HandleEvent decodes one client event and dispatches it. Unknown or
// malformed events are ignored without touching shared state.
func (s *Service) HandleEvent(connID string, raw []byte) {
	var event ClientEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		log.Printf("⚠️ Ignoring malformed event from %s: %v", connID, err)
		return
	}

	switch event.Type {
	case EventJoinRoom:
		s.handleJoinRoom(connID, event.Data)
	case EventSendMessage:
		s.handleSendMessage(connID, event.Data)
	case EventGetOnlineUsers:
		s.handleGetOnlineUsers(connID, event.Data)
	case EventGetAvailableRooms:
		s.handleGetAvailableRooms(connID)
	default:
		log.Printf("⚠️ Ignoring unknown event type '%s' from %s", event.Type, connID)
	}
}

// HandleDisconnect is the terminal transition: the connection is removed
// from the registry and, if it was joined, the vacated room is notified.
func (s *Service) HandleDisconnect(connID string) {
	roomID, info, hadRoom := s.registry.Unregister(connID)
	if !hadRoom {
		return
	}

	log.Printf("👋 %s left room '%s'", info.Nickname, roomID)
	s.notifyUserLeft(roomID, info)
}

// RegisterRoom makes a room identifier globally discoverable. If the
// identifier is genuinely new, every connection receives a rooms-updated
// broadcast. Returns whether the identifier was newly added.
func (s *Service) RegisterRoom(roomID string) bool {
	if !s.directory.EnsureKnown(roomID) {
		return false
	}

	s.metrics.IncrementRooms()
	log.Printf("🏠 Room '%s' added to directory", roomID)

	if payload, ok := s.encode(ServerEvent{Type: EventRoomsUpdated, Data: s.directory.ListKnown()}); ok {
		s.broadcaster.SendToAll(payload, "")
	}
	return true
}

// handleJoinRoom validates the join request and moves the connection's
// membership. Invalid payloads leave the connection in its previous state.
func (s *Service) handleJoinRoom(connID string, data json.RawMessage) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("⚠️ Ignoring malformed join-room from %s: %v", connID, err)
		return
	}

	roomID, err := s.validator.ValidateRoomID(payload.RoomID)
	if err != nil {
		log.Printf("⚠️ Rejecting join-room from %s: %v", connID, err)
		return
	}
	nickname, err := s.validator.ValidateNickname(payload.Nickname)
	if err != nil {
		log.Printf("⚠️ Rejecting join-room from %s: %v", connID, err)
		return
	}

	info := UserInfo{Nickname: nickname, IPAddress: payload.IPAddress}
	oldRoom := s.registry.JoinRoom(connID, roomID, info)

	// การ join ห้องใหม่ = ออกจากห้องเดิมโดยปริยาย
	if oldRoom != "" && oldRoom != roomID {
		s.notifyUserLeft(oldRoom, info)
	}

	s.RegisterRoom(roomID)

	log.Printf("🚪 %s joined room '%s' (conn %s)", nickname, roomID, connID)

	if payload, ok := s.encode(ServerEvent{Type: EventUserJoined, Data: info}); ok {
		s.broadcaster.SendToConnections(s.registry.ConnectionsInRoom(roomID), payload, connID)
	}
}

// handleSendMessage relays the caller-supplied payload verbatim to every
// connection in the payload's room, the sender included. Persistence is the
// data API's concern, not this path's.
func (s *Service) handleSendMessage(connID string, data json.RawMessage) {
	var payload RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.RoomID == "" {
		log.Printf("⚠️ Ignoring send-message without room from %s", connID)
		return
	}

	s.metrics.IncrementMessages()

	if encoded, ok := s.encode(ServerEvent{Type: EventNewMessage, Data: data}); ok {
		s.broadcaster.SendToConnections(s.registry.ConnectionsInRoom(payload.RoomID), encoded, "")
	}
}

// handleGetOnlineUsers replies directly to the requester with the room's
// presence snapshot. Unknown rooms yield an empty list.
func (s *Service) handleGetOnlineUsers(connID string, data json.RawMessage) {
	var payload RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("⚠️ Ignoring malformed get-online-users from %s: %v", connID, err)
		return
	}

	users := s.registry.OnlineUsers(payload.RoomID)
	if encoded, ok := s.encode(ServerEvent{Type: EventOnlineUsers, Data: users}); ok {
		s.broadcaster.SendDirect(connID, encoded)
	}
}

// handleGetAvailableRooms replies directly with the room directory snapshot
func (s *Service) handleGetAvailableRooms(connID string) {
	if encoded, ok := s.encode(ServerEvent{Type: EventRoomsUpdated, Data: s.directory.ListKnown()}); ok {
		s.broadcaster.SendDirect(connID, encoded)
	}
}

// notifyUserLeft tells the remaining members of a room that a user is gone.
// The payload carries only the network address so clients remove exactly one
// roster row.
func (s *Service) notifyUserLeft(roomID string, info UserInfo) {
	if encoded, ok := s.encode(ServerEvent{Type: EventUserLeft, Data: UserLeftPayload{IPAddress: info.IPAddress}}); ok {
		s.broadcaster.SendToConnections(s.registry.ConnectionsInRoom(roomID), encoded, "")
	}
}

// encode marshals a server event, logging instead of failing the caller
func (s *Service) encode(event ServerEvent) ([]byte, bool) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Failed to encode %s event: %v", event.Type, err)
		return nil, false
	}
	return encoded, true
}
