package security

import (
	"strings"
	"testing"

	"github.com/damndeepesh/PingMeMaybe/internal/config"
)

func newValidator() *InputValidator {
	return NewInputValidator(config.DefaultServerConfig())
}

// TestValidateNickname tests nickname acceptance, trimming, and rejection of
// control characters and markup.
func TestValidateNickname(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "alice", "alice", false},
		{"trimmed", "  alice  ", "alice", false},
		{"with spaces and digits", "alice 42", "alice 42", false},
		{"thai", "สมชาย", "สมชาย", false},
		{"empty", "", "", true},
		{"whitespace only", "   ", "", true},
		{"markup", "<script>alert(1)</script>", "", true},
		{"too long", strings.Repeat("a", 51), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.ValidateNickname(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateNickname(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ValidateNickname(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestValidateRoomID tests room identifier rules, including the dotted
// subnet-derived form.
func TestValidateRoomID(t *testing.T) {
	v := newValidator()

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "lobby", false},
		{"subnet derived", "room-192.168.1", false},
		{"underscores", "team_red", false},
		{"empty", "", true},
		{"spaces", "two words", true},
		{"slash", "room/hack", true},
		{"too long", strings.Repeat("r", 51), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateRoomID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRoomID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

// TestValidateMessage tests content limits and HTML escaping.
func TestValidateMessage(t *testing.T) {
	v := newValidator()

	if _, err := v.ValidateMessage(""); err == nil {
		t.Error("empty message should be rejected")
	}
	if _, err := v.ValidateMessage("   "); err == nil {
		t.Error("whitespace-only message should be rejected")
	}
	if _, err := v.ValidateMessage(strings.Repeat("x", 1001)); err == nil {
		t.Error("over-length message should be rejected")
	}

	got, err := v.ValidateMessage("hello   <b>world</b>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello &lt;b&gt;world&lt;/b&gt;" {
		t.Errorf("expected escaped, whitespace-collapsed content, got %q", got)
	}
}
