// Package chat serves conversations over websockets.
package chat

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// Conn is the part of a websocket connection the manager needs.
type Conn interface {
	Close(code websocket.StatusCode, reason string) error
}

// SessionManager tracks the live connection of each conversation.
type SessionManager struct {
	mu     sync.RWMutex
	active map[string]Conn
}

// NewSessionManager creates a new session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		active: make(map[string]Conn),
	}
}

// GetActive returns the active connection for a session.
func (m *SessionManager) GetActive(sessionID string) Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active[sessionID]
}

// Register makes conn the live connection of sessionID, closing any
// connection it replaces.
func (m *SessionManager) Register(sessionID string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, exists := m.active[sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[sessionID] = conn
	slog.Info("Chat session registered", "session_id", sessionID)
}

// Unregister removes conn if it is still the live connection of sessionID.
func (m *SessionManager) Unregister(sessionID string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, exists := m.active[sessionID]; exists && current == conn {
		delete(m.active, sessionID)
		slog.Info("Chat session unregistered", "session_id", sessionID)
	}
}

// CloseSession forcefully terminates the live connection of sessionID.
func (m *SessionManager) CloseSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.active[sessionID]
	if !ok {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "session closed")
	delete(m.active, sessionID)
	slog.Info("Chat session closed", "session_id", sessionID)
}

// Count returns the number of live connections.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active)
}
