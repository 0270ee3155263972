// Package housekeeping reclaims idle sessions, emitting any report that was
// never sent before the session is forgotten.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
	"github.com/ashureev/honeytrap/internal/report"
	"github.com/ashureev/honeytrap/internal/shared"
	"github.com/ashureev/honeytrap/internal/store"
)

const (
	defaultInterval = 5 * time.Minute
	defaultIdle     = 30 * time.Minute
)

// ReclaimCallback is called for every session the worker reclaims.
type ReclaimCallback func(sessionID string)

// ReportSink accepts reports for asynchronous delivery.
type ReportSink interface {
	Enqueue(r domain.Report) (string, error)
}

// SessionLocker serializes reclaim with live turns on the same session.
type SessionLocker interface {
	LockSession(id string) (unlock func())
}

type noLocks struct{}

func (noLocks) LockSession(string) func() { return func() {} }

// Config controls the sweep cadence and retry policy.
type Config struct {
	Interval   time.Duration
	Idle       time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Worker periodically sweeps the store for idle sessions.
type Worker struct {
	repo      store.Repository
	reports   ReportSink
	locks     SessionLocker
	cfg       Config
	onReclaim ReclaimCallback
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a worker. reports, locks and onReclaim may be nil.
func New(repo store.Repository, reports ReportSink, locks SessionLocker, cfg Config, onReclaim ReclaimCallback, logger *slog.Logger) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.Idle <= 0 {
		cfg.Idle = defaultIdle
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	if locks == nil {
		locks = noLocks{}
	}
	return &Worker{
		repo:      repo,
		reports:   reports,
		locks:     locks,
		cfg:       cfg,
		onReclaim: onReclaim,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps on every tick until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	w.logger.Info("Housekeeping worker started", "interval", w.cfg.Interval, "idle", w.cfg.Idle)

	for {
		select {
		case <-ticker.C:
			w.Sweep(ctx)
		case <-ctx.Done():
			w.logger.Info("Housekeeping worker shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// Sweep reclaims every session idle longer than the configured window and
// returns how many were removed.
func (w *Worker) Sweep(ctx context.Context) int {
	idle, err := w.repo.ListIdleSessions(ctx, w.cfg.Idle)
	if err != nil {
		w.logger.Error("Housekeeping failed to list idle sessions", "error", err)
		return 0
	}
	if len(idle) == 0 {
		return 0
	}

	w.logger.Info("Housekeeping found idle sessions", "count", len(idle))
	reclaimed := 0
	for _, s := range idle {
		if ctx.Err() != nil {
			break
		}
		if w.reclaim(ctx, s.ID) {
			reclaimed++
		}
	}

	w.logger.Info("Housekeeping sweep completed", "reclaimed", reclaimed)
	return reclaimed
}

// reclaim removes the session while holding its turn lock. The session is
// re-read under the lock and kept when a turn refreshed it after listing.
func (w *Worker) reclaim(ctx context.Context, id string) bool {
	unlock := w.locks.LockSession(id)
	defer unlock()

	s, err := w.repo.GetSession(ctx, id)
	if err != nil {
		w.logger.Warn("Housekeeping failed to reload session", "session_id", id, "error", err)
		return false
	}
	if s == nil {
		return false
	}
	if w.now().Sub(s.LastActivity) < w.cfg.Idle {
		w.logger.Debug("Housekeeping skipped session active since listing", "session_id", id)
		return false
	}

	w.flushReport(ctx, s)

	if w.onReclaim != nil {
		w.onReclaim(id)
	}

	if err := w.deleteWithRetry(ctx, id); err != nil {
		w.logger.Warn("Housekeeping failed to delete session after retries",
			"error", err,
			"session_id", id)
		return false
	}
	return true
}

// flushReport emits the report of a detected scam whose engagement never
// reached a close.
func (w *Worker) flushReport(ctx context.Context, s *domain.Session) {
	if !s.ScamDetected || s.ReportSent || w.reports == nil {
		return
	}
	s.Ended = true
	id, err := w.reports.Enqueue(report.Build(s))
	if err != nil {
		w.logger.Warn("Housekeeping failed to enqueue report", "session_id", s.ID, "error", err)
		return
	}
	s.ReportSent = true
	if err := w.repo.UpdateSession(ctx, s); err != nil {
		w.logger.Debug("Housekeeping could not mark report sent", "session_id", s.ID, "report_id", id, "error", err)
	}
	w.logger.Info("Housekeeping dispatched report for idle session", "session_id", s.ID, "report_id", id)
}

// deleteWithRetry deletes a session with exponential backoff to ride out
// SQLITE_BUSY errors.
func (w *Worker) deleteWithRetry(ctx context.Context, id string) error {
	var err error
	for i := 0; i < w.cfg.MaxRetries; i++ {
		err = w.repo.DeleteSession(ctx, id)
		if err == nil {
			return nil
		}
		if !shared.IsSQLiteConflictError(err) || i == w.cfg.MaxRetries-1 {
			break
		}

		delay := w.cfg.RetryDelay * time.Duration(1<<i)
		w.logger.Debug("Session delete failed with SQLITE_BUSY, retrying",
			"session_id", id,
			"attempt", i+1,
			"delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("failed to delete session %s: %w", id, err)
}
