// Package store provides session persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
)

var (
	// ErrSessionExists is returned when creating a session id already stored.
	ErrSessionExists = errors.New("session already exists")
	// ErrSessionNotFound is returned when updating a session that is not stored.
	ErrSessionNotFound = errors.New("session not found")
)

// Repository defines the interface for persisting engagement sessions.
// GetSession returns nil, nil when the session does not exist.
type Repository interface {
	// GetSession retrieves a session by id.
	GetSession(ctx context.Context, id string) (*domain.Session, error)

	// CreateSession stores a new session.
	CreateSession(ctx context.Context, s *domain.Session) error

	// UpdateSession replaces a stored session.
	UpdateSession(ctx context.Context, s *domain.Session) error

	// DeleteSession removes a session. Deleting a missing session is not an error.
	DeleteSession(ctx context.Context, id string) error

	// ListIdleSessions returns sessions with no activity within idle.
	ListIdleSessions(ctx context.Context, idle time.Duration) ([]*domain.Session, error)

	// Ping verifies connectivity and returns an error if the store is unreachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
