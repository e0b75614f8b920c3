// Package room maintains the global directory of room identifiers known to
// the server. The directory is append-only: identifiers stay discoverable for
// the lifetime of the process even after every occupant has left.
package room

import "sync"

// Directory implements chat.Directory with an insertion-ordered known set
type Directory struct {
	mutex sync.RWMutex
	known map[string]struct{}
	order []string
}

// NewDirectory creates an empty room directory
func NewDirectory() *Directory {
	return &Directory{
		known: make(map[string]struct{}),
	}
}

// EnsureKnown adds the room identifier if absent and reports whether this
// call was a genuinely new addition. Empty identifiers are ignored.
func (d *Directory) EnsureKnown(roomID string) bool {
	if roomID == "" {
		return false
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, exists := d.known[roomID]; exists {
		return false
	}
	d.known[roomID] = struct{}{}
	d.order = append(d.order, roomID)
	return true
}

// ListKnown returns a snapshot of known room identifiers in insertion order
func (d *Directory) ListKnown() []string {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	rooms := make([]string, len(d.order))
	copy(rooms, d.order)
	return rooms
}

// Seed bulk-loads identifiers, typically from persisted rooms at startup
func (d *Directory) Seed(roomIDs []string) {
	for _, roomID := range roomIDs {
		d.EnsureKnown(roomID)
	}
}
