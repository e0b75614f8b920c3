package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/damndeepesh/PingMeMaybe/internal/chat"
)

// TestRegisterIsAnonymous tests that a freshly registered connection has no
// room and contributes no presence anywhere.
func TestRegisterIsAnonymous(t *testing.T) {
	r := New()
	r.Register("conn-1")

	if count := r.ConnectionCount(); count != 1 {
		t.Fatalf("expected 1 connection, got %d", count)
	}
	if users := r.OnlineUsers("lobby"); len(users) != 0 {
		t.Errorf("anonymous connection should have no presence, got %v", users)
	}
}

// TestJoinRoomRecordsPresence tests that joining a room makes the connection
// visible in that room's presence set.
func TestJoinRoomRecordsPresence(t *testing.T) {
	r := New()
	r.Register("conn-1")

	oldRoom := r.JoinRoom("conn-1", "lobby", chat.UserInfo{Nickname: "alice", IPAddress: "192.168.1.10"})
	if oldRoom != "" {
		t.Errorf("first join should report no previous room, got %q", oldRoom)
	}

	users := r.OnlineUsers("lobby")
	if len(users) != 1 || users[0].Nickname != "alice" {
		t.Fatalf("expected alice in lobby, got %v", users)
	}

	conns := r.ConnectionsInRoom("lobby")
	if len(conns) != 1 || conns[0] != "conn-1" {
		t.Fatalf("expected conn-1 in lobby, got %v", conns)
	}
}

// TestJoinRoomImplicitlyRegisters tests that a join for an unknown connection
// ID registers it rather than failing.
func TestJoinRoomImplicitlyRegisters(t *testing.T) {
	r := New()

	r.JoinRoom("conn-x", "lobby", chat.UserInfo{Nickname: "bob", IPAddress: "192.168.1.11"})

	if count := r.ConnectionCount(); count != 1 {
		t.Errorf("expected implicit registration, got %d connections", count)
	}
}

// TestRoomSwitchMovesPresence tests that joining a second room removes the
// connection's presence from the first, so no connection is ever present in
// two rooms at once.
func TestRoomSwitchMovesPresence(t *testing.T) {
	r := New()
	info := chat.UserInfo{Nickname: "alice", IPAddress: "192.168.1.10"}

	r.JoinRoom("conn-1", "room-a", info)
	oldRoom := r.JoinRoom("conn-1", "room-b", info)

	if oldRoom != "room-a" {
		t.Errorf("expected old room 'room-a', got %q", oldRoom)
	}
	if users := r.OnlineUsers("room-a"); len(users) != 0 {
		t.Errorf("room-a should be empty after switch, got %v", users)
	}
	if users := r.OnlineUsers("room-b"); len(users) != 1 {
		t.Errorf("room-b should have one user, got %v", users)
	}
}

// TestRejoinSameRoomKeepsPresence tests that re-joining the current room
// reports it as the old room and leaves exactly one presence entry.
func TestRejoinSameRoomKeepsPresence(t *testing.T) {
	r := New()
	info := chat.UserInfo{Nickname: "alice", IPAddress: "192.168.1.10"}

	r.JoinRoom("conn-1", "lobby", info)
	oldRoom := r.JoinRoom("conn-1", "lobby", info)

	if oldRoom != "lobby" {
		t.Errorf("expected old room 'lobby', got %q", oldRoom)
	}
	if users := r.OnlineUsers("lobby"); len(users) != 1 {
		t.Errorf("expected one presence entry, got %v", users)
	}
}

// TestUnregisterReturnsLastState tests that unregistering a joined connection
// reports the room and identity it held.
func TestUnregisterReturnsLastState(t *testing.T) {
	r := New()
	r.JoinRoom("conn-1", "lobby", chat.UserInfo{Nickname: "alice", IPAddress: "192.168.1.10"})

	roomID, info, hadRoom := r.Unregister("conn-1")
	if !hadRoom {
		t.Fatal("expected hadRoom true for a joined connection")
	}
	if roomID != "lobby" || info.Nickname != "alice" {
		t.Errorf("unexpected unregister state: room=%q info=%v", roomID, info)
	}
	if users := r.OnlineUsers("lobby"); len(users) != 0 {
		t.Errorf("presence should be gone after unregister, got %v", users)
	}
	if count := r.ConnectionCount(); count != 0 {
		t.Errorf("expected 0 connections, got %d", count)
	}
}

// TestUnregisterAnonymous tests that removing a connection that never joined
// a room reports hadRoom false.
func TestUnregisterAnonymous(t *testing.T) {
	r := New()
	r.Register("conn-1")

	_, _, hadRoom := r.Unregister("conn-1")
	if hadRoom {
		t.Error("anonymous connection should report hadRoom false")
	}
}

// TestUnregisterUnknownIsNoOp tests that unknown connection IDs are ignored.
func TestUnregisterUnknownIsNoOp(t *testing.T) {
	r := New()

	_, _, hadRoom := r.Unregister("never-seen")
	if hadRoom {
		t.Error("unknown connection should report hadRoom false")
	}
}

// TestSnapshotsAreCopies tests that mutating a returned presence snapshot
// does not affect the registry.
func TestSnapshotsAreCopies(t *testing.T) {
	r := New()
	r.JoinRoom("conn-1", "lobby", chat.UserInfo{Nickname: "alice", IPAddress: "192.168.1.10"})

	users := r.OnlineUsers("lobby")
	users[0].Nickname = "mallory"

	if fresh := r.OnlineUsers("lobby"); fresh[0].Nickname != "alice" {
		t.Errorf("registry state was mutated through a snapshot: %v", fresh)
	}
}

// TestConcurrentJoinsAndLeaves tests that concurrent membership churn leaves
// presence consistent with registry membership.
func TestConcurrentJoinsAndLeaves(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", n)
			info := chat.UserInfo{Nickname: fmt.Sprintf("user%d", n), IPAddress: fmt.Sprintf("192.168.1.%d", n)}
			r.JoinRoom(connID, "room-a", info)
			r.JoinRoom(connID, "room-b", info)
			if n%2 == 0 {
				r.Unregister(connID)
			}
		}(i)
	}
	wg.Wait()

	if users := r.OnlineUsers("room-a"); len(users) != 0 {
		t.Errorf("room-a should be empty, got %d users", len(users))
	}
	if users := r.OnlineUsers("room-b"); len(users) != 25 {
		t.Errorf("room-b should have 25 users, got %d", len(users))
	}
	if count := r.ConnectionCount(); count != 25 {
		t.Errorf("expected 25 connections, got %d", count)
	}
}
