// Package api exposes the HTTP data endpoints backing the chat clients:
// message history, room management, and network-address identity.
package api

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/damndeepesh/PingMeMaybe/internal/chat"
	"github.com/damndeepesh/PingMeMaybe/internal/security"
)

// RoomRegistrar makes room identifiers discoverable to live connections
type RoomRegistrar interface {
	RegisterRoom(roomID string) bool
}

// Handler serves the REST data API
type Handler struct {
	messages  chat.MessageStore
	users     chat.UserStore
	registrar RoomRegistrar
	validator *security.InputValidator
}

// NewHandler creates a new REST API handler
func NewHandler(messages chat.MessageStore, users chat.UserStore, registrar RoomRegistrar, validator *security.InputValidator) *Handler {
	return &Handler{
		messages:  messages,
		users:     users,
		registrar: registrar,
		validator: validator,
	}
}

// RegisterRoutes wires the API endpoints onto the mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/messages", h.handleMessages)
	mux.HandleFunc("/api/rooms", h.handleRooms)
	mux.HandleFunc("/api/user", h.handleUser)
}

func (h *Handler) handleMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listMessages(w, r)
	case http.MethodPost:
		h.createMessage(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleRooms(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listRooms(w, r)
	case http.MethodPost:
		h.createRoom(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// listMessages returns a room's message history, oldest first
func (h *Handler) listMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		writeError(w, http.StatusBadRequest, "roomId is required")
		return
	}

	messages, err := h.messages.ListMessages(r.Context(), roomID)
	if err != nil {
		log.Printf("❌ Failed to list messages for room '%s': %v", roomID, err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve messages")
		return
	}

	writeSuccess(w, http.StatusOK, messages)
}

type createMessageRequest struct {
	RoomID  string `json:"roomId"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Type    string `json:"type"`
}

// createMessage persists one message. The fanout path does not persist, so
// clients post here alongside sending over the socket.
func (h *Handler) createMessage(w http.ResponseWriter, r *http.Request) {
	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RoomID == "" || req.Sender == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "roomId, sender and content are required")
		return
	}

	content, err := h.validator.ValidateMessage(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msgType := req.Type
	if msgType == "" {
		msgType = "text"
	}

	message, err := h.messages.CreateMessage(r.Context(), req.RoomID, req.Sender, content, msgType)
	if err != nil {
		log.Printf("❌ Failed to save message in room '%s': %v", req.RoomID, err)
		writeError(w, http.StatusInternalServerError, "failed to save message")
		return
	}

	writeSuccess(w, http.StatusCreated, message)
}

// listRooms returns every room identifier with persisted history
func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.messages.ListDistinctRooms(r.Context())
	if err != nil {
		log.Printf("❌ Failed to list rooms: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to retrieve rooms")
		return
	}

	writeSuccess(w, http.StatusOK, rooms)
}

type createRoomRequest struct {
	RoomID string `json:"roomId"`
}

// createRoom anchors a new room with a placeholder message so it shows up in
// the persisted room list, then announces it to live connections
func (h *Handler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	roomID, err := h.validator.ValidateRoomID(req.RoomID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := h.messages.CreateMessage(r.Context(), roomID, "System", "Room created", "system")
	if err != nil {
		log.Printf("❌ Failed to create room '%s': %v", roomID, err)
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.registrar.RegisterRoom(roomID)

	writeSuccess(w, http.StatusCreated, message)
}

type userRequest struct {
	Nickname     string `json:"nickname"`
	CustomRoomID string `json:"customRoomId"`
}

type userResponse struct {
	User      *chat.UserRecord `json:"user"`
	RoomID    string           `json:"roomId"`
	NetworkID string           `json:"networkId"`
}

// handleUser registers the caller's identity keyed by network address and
// tells them which subnet room they belong to
func (h *Handler) handleUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req userRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	nickname, err := h.validator.ValidateNickname(req.Nickname)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ipAddress := clientAddress(r)
	networkID := networkPrefix(ipAddress)

	roomID := req.CustomRoomID
	if roomID == "" {
		roomID = "room-" + networkID
	}
	if roomID, err = h.validator.ValidateRoomID(roomID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.UpsertUser(r.Context(), ipAddress, nickname)
	if err != nil {
		log.Printf("❌ Failed to upsert user %s: %v", ipAddress, err)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	writeSuccess(w, http.StatusOK, userResponse{
		User:      user,
		RoomID:    roomID,
		NetworkID: networkID,
	})
}

// clientAddress resolves the caller's LAN address. Proxied requests carry it
// in X-Forwarded-For; otherwise fall back to the socket peer, then to the
// server's own interface address.
func clientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" && host != "::1" && host != "127.0.0.1" {
		return host
	}

	if addr := localLANAddress(); addr != "" {
		return addr
	}
	return "127.0.0.1"
}

// localLANAddress returns the first non-loopback IPv4 address of this host
func localLANAddress() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			return ipNet.IP.String()
		}
	}
	return ""
}

// networkPrefix derives the /24 subnet identifier from an IPv4 address
func networkPrefix(ipAddress string) string {
	parts := strings.Split(ipAddress, ".")
	if len(parts) == 4 {
		return strings.Join(parts[:3], ".")
	}
	return ipAddress
}

type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, apiResponse{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiResponse{Success: false, Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("❌ Failed to encode API response: %v", err)
	}
}
