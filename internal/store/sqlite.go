package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
	"github.com/ashureev/honeytrap/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. Each session is stored as
// a JSON document next to the columns housekeeping filters on.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // Serializes writers to avoid SQLITE_BUSY under WAL.

	maxRetries int
	retryDelay time.Duration
}

// NewSQLite creates a new SQLite-backed repository. Writes that hit a busy
// database are retried up to maxRetries times with exponential backoff
// starting at retryDelay.
func NewSQLite(dbPath string, maxRetries int, retryDelay time.Duration) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = 100 * time.Millisecond
	}
	store := &SQLiteStore{db: db, maxRetries: maxRetries, retryDelay: retryDelay}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		phase TEXT NOT NULL,
		scam_detected INTEGER NOT NULL DEFAULT 0,
		max_confidence REAL NOT NULL DEFAULT 0,
		ended INTEGER NOT NULL DEFAULT 0,
		report_sent INTEGER NOT NULL DEFAULT 0,
		document TEXT NOT NULL,
		last_activity INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_activity ON sessions(last_activity);
	CREATE INDEX IF NOT EXISTS idx_sessions_pending_report ON sessions(scam_detected, report_sent);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT document FROM sessions WHERE session_id = ?`, id)

	var doc string
	err := row.Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return decodeSession(doc)
}

// CreateSession stores a new session, returning ErrSessionExists on a duplicate id.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	query := `
	INSERT INTO sessions (session_id, phase, scam_detected, max_confidence, ended, report_sent,
		document, last_activity, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(session_id) DO NOTHING`

	var rows int64
	err = s.withRetry(ctx, "create session", sess.ID, func() error {
		result, err := s.db.ExecContext(ctx, query,
			sess.ID, string(sess.Phase), sess.ScamDetected, sess.MaxConfidence, sess.Ended, sess.ReportSent,
			string(doc), sess.LastActivity.UnixMilli(), sess.CreatedAt.UnixMilli(), time.Now().UnixMilli(),
		)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if rows == 0 {
		return ErrSessionExists
	}
	return nil
}

// UpdateSession replaces a stored session.
func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *domain.Session) error {
	doc, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	query := `
	UPDATE sessions SET phase = ?, scam_detected = ?, max_confidence = ?, ended = ?, report_sent = ?,
		document = ?, last_activity = ?, updated_at = ?
	WHERE session_id = ?`

	var rows int64
	err = s.withRetry(ctx, "update session", sess.ID, func() error {
		result, err := s.db.ExecContext(ctx, query,
			string(sess.Phase), sess.ScamDetected, sess.MaxConfidence, sess.Ended, sess.ReportSent,
			string(doc), sess.LastActivity.UnixMilli(), time.Now().UnixMilli(), sess.ID,
		)
		if err != nil {
			return err
		}
		rows, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateSession affected 0 rows", "session_id", sess.ID)
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	err := s.withRetry(ctx, "delete session", id, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// ListIdleSessions retrieves sessions whose last activity is older than idle.
func (s *SQLiteStore) ListIdleSessions(ctx context.Context, idle time.Duration) ([]*domain.Session, error) {
	threshold := time.Now().Add(-idle).UnixMilli()
	rows, err := s.db.QueryContext(ctx,
		`SELECT document FROM sessions WHERE last_activity < ? ORDER BY last_activity`, threshold)
	if err != nil {
		return nil, fmt.Errorf("query idle sessions: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close idle sessions rows", "error", closeErr)
		}
	}()

	var sessions []*domain.Session
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan idle session row: %w", err)
		}
		sess, err := decodeSession(doc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate idle sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// withRetry runs op under the writer lock, backing off while SQLite reports
// the database busy or locked.
func (s *SQLiteStore) withRetry(ctx context.Context, what, id string, op func() error) error {
	var err error
	for i := 0; i < s.maxRetries; i++ {
		s.mu.Lock()
		err = op()
		s.mu.Unlock()
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i == s.maxRetries-1 {
			break
		}

		delay := s.retryDelay * time.Duration(1<<i)
		slog.Debug("SQLite busy, retrying", "op", what, "session_id", id, "attempt", i+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("after %d attempts: %w", s.maxRetries, err)
}

func decodeSession(doc string) (*domain.Session, error) {
	var sess domain.Session
	if err := json.Unmarshal([]byte(doc), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}
