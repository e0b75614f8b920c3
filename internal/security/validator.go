package security

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/damndeepesh/PingMeMaybe/internal/config"
)

var (
	validNickname = regexp.MustCompile(`^[a-zA-Z0-9_\- \p{Thai}]+$`)
	validRoomID   = regexp.MustCompile(`^[a-zA-Z0-9._\-]+$`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// InputValidator handles input validation and sanitization
type InputValidator struct {
	config *config.ServerConfig
}

// NewInputValidator creates a new input validator
func NewInputValidator(config *config.ServerConfig) *InputValidator {
	return &InputValidator{
		config: config,
	}
}

// ValidateNickname validates and sanitizes a nickname
func (v *InputValidator) ValidateNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)

	if nickname == "" {
		return "", fmt.Errorf("nickname cannot be empty")
	}

	if utf8.RuneCountInString(nickname) > v.config.MaxNicknameLength {
		return "", fmt.Errorf("nickname too long (max %d characters)", v.config.MaxNicknameLength)
	}

	if !validNickname.MatchString(nickname) {
		return "", fmt.Errorf("nickname contains invalid characters")
	}

	return html.EscapeString(nickname), nil
}

// ValidateRoomID validates a room identifier. Dots are allowed because
// subnet-derived rooms look like "room-192.168.1".
func (v *InputValidator) ValidateRoomID(roomID string) (string, error) {
	roomID = strings.TrimSpace(roomID)

	if roomID == "" {
		return "", fmt.Errorf("room id cannot be empty")
	}

	if utf8.RuneCountInString(roomID) > v.config.MaxRoomNameLength {
		return "", fmt.Errorf("room id too long (max %d characters)", v.config.MaxRoomNameLength)
	}

	if !validRoomID.MatchString(roomID) {
		return "", fmt.Errorf("room id contains invalid characters")
	}

	return roomID, nil
}

// ValidateMessage validates and sanitizes message content
func (v *InputValidator) ValidateMessage(message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message cannot be empty")
	}

	if utf8.RuneCountInString(message) > v.config.MaxMessageLength {
		return "", fmt.Errorf("message too long (max %d characters)", v.config.MaxMessageLength)
	}

	message = strings.TrimSpace(message)
	message = whitespaceRun.ReplaceAllString(message, " ")

	// ป้องกัน XSS
	return html.EscapeString(message), nil
}
