package chat

import (
	"sync"
	"testing"

	"github.com/coder/websocket"
)

type fakeConn struct {
	mu     sync.Mutex
	closed []websocket.StatusCode
}

func (c *fakeConn) Close(code websocket.StatusCode, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = append(c.closed, code)
	return nil
}

func (c *fakeConn) closeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.closed)
}

func TestSessionManager_RegisterUnregister(t *testing.T) {
	sm := NewSessionManager()
	conn := &fakeConn{}

	sm.Register("session1", conn)
	if got := sm.GetActive("session1"); got != conn {
		t.Fatalf("expected conn to be active, got %v", got)
	}

	sm.Unregister("session1", conn)
	if got := sm.GetActive("session1"); got != nil {
		t.Fatalf("expected nil active conn, got %v", got)
	}
}

func TestSessionManager_ReplaceClosesPrevious(t *testing.T) {
	sm := NewSessionManager()
	first := &fakeConn{}
	second := &fakeConn{}

	sm.Register("session1", first)
	sm.Register("session1", second)

	if first.closeCount() != 1 {
		t.Errorf("replaced connection should be closed once, got %d", first.closeCount())
	}
	if second.closeCount() != 0 {
		t.Errorf("new connection must stay open")
	}
	if got := sm.GetActive("session1"); got != second {
		t.Fatalf("expected second conn to be active")
	}

	// A stale unregister from the replaced handler must not evict the new one.
	sm.Unregister("session1", first)
	if got := sm.GetActive("session1"); got != second {
		t.Fatalf("stale unregister removed the live connection")
	}
}

func TestSessionManager_ReRegisterSameConn(t *testing.T) {
	sm := NewSessionManager()
	conn := &fakeConn{}
	sm.Register("session1", conn)
	sm.Register("session1", conn)
	if conn.closeCount() != 0 {
		t.Errorf("re-registering the same conn must not close it")
	}
}

func TestSessionManager_CloseSession(t *testing.T) {
	sm := NewSessionManager()
	conn := &fakeConn{}
	sm.Register("session1", conn)
	sm.Register("session2", &fakeConn{})

	sm.CloseSession("session1")
	sm.CloseSession("missing")

	if conn.closeCount() != 1 {
		t.Errorf("expected conn closed once, got %d", conn.closeCount())
	}
	if sm.GetActive("session1") != nil {
		t.Error("closed session still active")
	}
	if sm.Count() != 1 {
		t.Errorf("count = %d, want 1", sm.Count())
	}
}

func TestSessionManager_Concurrent(t *testing.T) {
	sm := NewSessionManager()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn := &fakeConn{}
			sm.Register("shared", conn)
			_ = sm.GetActive("shared")
			sm.Unregister("shared", conn)
		}()
	}
	wg.Wait()
	if sm.Count() > 1 {
		t.Errorf("count = %d after concurrent churn", sm.Count())
	}
}
