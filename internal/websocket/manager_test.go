package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/damndeepesh/PingMeMaybe/internal/config"
)

// recordingSession captures disconnect notifications from the manager
type recordingSession struct {
	mutex        sync.Mutex
	disconnected []string
}

func (s *recordingSession) HandleDisconnect(connID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.disconnected = append(s.disconnected, connID)
}

func (s *recordingSession) count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.disconnected)
}

func (s *recordingSession) has(connID string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, id := range s.disconnected {
		if id == connID {
			return true
		}
	}
	return false
}

func newTestManager(sendBuffer int) (*Manager, *recordingSession) {
	cfg := config.DefaultServerConfig()
	cfg.SendBuffer = sendBuffer
	cfg.EnableHealthCheck = false

	session := &recordingSession{}
	m := NewManager(cfg, config.NewServerMetrics())
	m.SetSessionHandler(session)
	go m.Run()
	return m, session
}

// waitFor polls a condition until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// expectPayload reads one payload from a connection's send channel
func expectPayload(t *testing.T, conn *Connection, want string) {
	t.Helper()
	select {
	case payload := <-conn.Send:
		if string(payload) != want {
			t.Errorf("expected payload %q, got %q", want, payload)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for payload on %s", conn.ID)
	}
}

// expectSilence verifies no payload arrives on a connection's send channel
func expectSilence(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case payload := <-conn.Send:
		t.Errorf("unexpected payload on %s: %q", conn.ID, payload)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestAddAndRemoveConnection tests the connection registration lifecycle
// and the disconnect notification that accompanies removal.
func TestAddAndRemoveConnection(t *testing.T) {
	m, session := newTestManager(8)

	conn := m.AddConnection(nil, "192.168.1.10:54321")
	waitFor(t, "registration", func() bool { return m.ConnectionCount() == 1 })

	m.RemoveConnection(conn.ID)
	waitFor(t, "unregistration", func() bool { return m.ConnectionCount() == 0 })
	waitFor(t, "disconnect notification", func() bool { return session.has(conn.ID) })
}

// TestSendToConnectionsTargetsOnly tests that a targeted broadcast reaches
// the named connections and nobody else.
func TestSendToConnectionsTargetsOnly(t *testing.T) {
	m, _ := newTestManager(8)

	a := m.AddConnection(nil, "10.0.0.1:1")
	b := m.AddConnection(nil, "10.0.0.2:2")
	c := m.AddConnection(nil, "10.0.0.3:3")
	waitFor(t, "registrations", func() bool { return m.ConnectionCount() == 3 })

	m.SendToConnections([]string{a.ID, b.ID}, []byte("room payload"), "")

	expectPayload(t, a, "room payload")
	expectPayload(t, b, "room payload")
	expectSilence(t, c)
}

// TestSendToConnectionsHonorsExclusion tests that the excluded connection
// never receives the payload even when listed as a target.
func TestSendToConnectionsHonorsExclusion(t *testing.T) {
	m, _ := newTestManager(8)

	a := m.AddConnection(nil, "10.0.0.1:1")
	b := m.AddConnection(nil, "10.0.0.2:2")
	waitFor(t, "registrations", func() bool { return m.ConnectionCount() == 2 })

	m.SendToConnections([]string{a.ID, b.ID}, []byte("join announcement"), a.ID)

	expectPayload(t, b, "join announcement")
	expectSilence(t, a)
}

// TestSendToAllReachesEveryConnection tests the global broadcast path.
func TestSendToAllReachesEveryConnection(t *testing.T) {
	m, _ := newTestManager(8)

	a := m.AddConnection(nil, "10.0.0.1:1")
	b := m.AddConnection(nil, "10.0.0.2:2")
	waitFor(t, "registrations", func() bool { return m.ConnectionCount() == 2 })

	m.SendToAll([]byte("rooms changed"), "")

	expectPayload(t, a, "rooms changed")
	expectPayload(t, b, "rooms changed")
}

// TestSendDirectBypassesQueue tests the direct reply path used for
// request/response events.
func TestSendDirectBypassesQueue(t *testing.T) {
	m, _ := newTestManager(8)

	a := m.AddConnection(nil, "10.0.0.1:1")
	b := m.AddConnection(nil, "10.0.0.2:2")
	waitFor(t, "registrations", func() bool { return m.ConnectionCount() == 2 })

	m.SendDirect(a.ID, []byte("just for you"))

	expectPayload(t, a, "just for you")
	expectSilence(t, b)

	// unknown IDs are a no-op
	m.SendDirect("nobody", []byte("lost"))
}

// TestSlowConnectionIsEvicted tests that a connection whose send buffer is
// full gets dropped by the broadcast loop instead of stalling delivery, and
// that the session layer hears about it.
func TestSlowConnectionIsEvicted(t *testing.T) {
	m, session := newTestManager(1)

	slow := m.AddConnection(nil, "10.0.0.1:1")
	healthy := m.AddConnection(nil, "10.0.0.2:2")
	waitFor(t, "registrations", func() bool { return m.ConnectionCount() == 2 })

	// ใช้ buffer ให้เต็มโดยไม่อ่านฝั่ง slow
	m.SendToAll([]byte("first"), "")
	waitFor(t, "first delivery", func() bool { return len(slow.Send) == 1 })

	m.SendToAll([]byte("second"), "")

	waitFor(t, "eviction", func() bool { return m.ConnectionCount() == 1 })
	waitFor(t, "disconnect notification", func() bool { return session.has(slow.ID) })

	if session.has(healthy.ID) {
		t.Error("healthy connection should survive")
	}

	expectPayload(t, healthy, "first")
	expectPayload(t, healthy, "second")
}

// TestRemoveConnectionTwiceIsSafe tests that double removal does not panic
// or produce duplicate disconnect notifications.
func TestRemoveConnectionTwiceIsSafe(t *testing.T) {
	m, session := newTestManager(8)

	conn := m.AddConnection(nil, "10.0.0.1:1")
	waitFor(t, "registration", func() bool { return m.ConnectionCount() == 1 })

	m.RemoveConnection(conn.ID)
	waitFor(t, "unregistration", func() bool { return m.ConnectionCount() == 0 })
	m.RemoveConnection(conn.ID)

	time.Sleep(20 * time.Millisecond)
	if session.count() != 1 {
		t.Errorf("expected one disconnect notification, got %d", session.count())
	}
}
