// Package transcript writes conversation turns as NDJSON, one file per
// session plus an optional combined file.
package transcript

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/ashureev/honeytrap/internal/domain"
)

// Directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Config controls transcript logging.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Event is one logged message.
type Event struct {
	Timestamp    time.Time        `json:"ts"`
	SessionID    string           `json:"session_id"`
	Direction    string           `json:"direction"`
	Sender       string           `json:"sender"`
	Turn         int              `json:"turn"`
	Content      string           `json:"content"`
	ContentRaw   string           `json:"content_raw"`
	Phase        domain.Phase     `json:"phase,omitempty"`
	Confidence   float64          `json:"confidence"`
	ScamDetected bool             `json:"scam_detected"`
	FraudType    domain.FraudType `json:"fraud_type,omitempty"`
	Branch       string           `json:"branch,omitempty"`
	FellBack     bool             `json:"fell_back,omitempty"`
	Violations   int              `json:"violations,omitempty"`
}

// Logger queues events and appends them from a single writer goroutine.
// A disabled Logger drops every event.
type Logger struct {
	cfg    Config
	logger *slog.Logger

	queue  chan Event
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New creates a logger, preparing its directories when enabled.
func New(cfg Config, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{cfg: cfg, logger: logger}
	if !cfg.Enabled {
		return l, nil
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("transcript directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create transcript directory: %w", err)
	}
	if cfg.GlobalEnabled {
		if cfg.GlobalPath == "" {
			return nil, fmt.Errorf("global transcript path is required")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create global transcript directory: %w", err)
		}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	l.cfg = cfg
	l.queue = make(chan Event, cfg.QueueSize)
	l.wg.Add(1)
	go l.run()
	return l, nil
}

// Log queues e without blocking. When the queue is full the oldest event is
// dropped.
func (l *Logger) Log(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.queue == nil || l.closed {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Content == "" {
		e.Content = cleanForReadability(e.ContentRaw)
	}

	select {
	case l.queue <- e:
		return
	default:
	}
	select {
	case <-l.queue:
		l.logger.Warn("Transcript queue full, dropped oldest event", "session_id", e.SessionID)
	default:
	}
	select {
	case l.queue <- e:
	default:
	}
}

// ObserveTurn logs the inbound and outbound messages of rec.
func (l *Logger) ObserveTurn(rec domain.TurnRecord) {
	base := Event{
		SessionID:    rec.SessionID,
		Phase:        rec.Phase,
		Confidence:   rec.Confidence,
		ScamDetected: rec.ScamDetected,
		FraudType:    rec.FraudType,
	}

	in := base
	in.Timestamp = rec.Inbound.Timestamp
	in.Direction = DirectionInbound
	in.Sender = rec.Inbound.Sender
	in.Turn = rec.Inbound.Turn
	in.ContentRaw = rec.Inbound.Text
	l.Log(in)

	out := base
	out.Timestamp = rec.Outbound.Timestamp
	out.Direction = DirectionOutbound
	out.Sender = rec.Outbound.Sender
	out.Turn = rec.Outbound.Turn
	out.ContentRaw = rec.Outbound.Text
	out.Branch = rec.Branch
	out.FellBack = rec.FellBack
	out.Violations = rec.Violations
	l.Log(out)
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() error {
	l.mu.Lock()
	if l.queue == nil || l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	l.wg.Wait()
	return nil
}

func (l *Logger) run() {
	defer l.wg.Done()
	for e := range l.queue {
		line, err := json.Marshal(e)
		if err != nil {
			l.logger.Warn("Failed to encode transcript event", "session_id", e.SessionID, "error", err)
			continue
		}
		line = append(line, '\n')

		path := filepath.Join(l.cfg.Dir, safeName(e.SessionID)+".ndjson")
		if err := appendLine(path, line); err != nil {
			l.logger.Warn("Failed to write transcript", "path", path, "error", err)
		}
		if l.cfg.GlobalEnabled {
			if err := appendLine(l.cfg.GlobalPath, line); err != nil {
				l.logger.Warn("Failed to write global transcript", "path", l.cfg.GlobalPath, "error", err)
			}
		}
	}
}

func appendLine(path string, line []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// safeName maps a session id onto a single path element.
func safeName(id string) string {
	name := unsafeName.ReplaceAllString(id, "_")
	name = strings.TrimLeft(name, ".")
	if len(name) > 128 {
		name = name[:128]
	}
	if name == "" {
		name = "unknown"
	}
	return name
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// cleanForReadability strips escape sequences and invisible characters and
// collapses whitespace.
func cleanForReadability(raw string) string {
	s := ansiEscape.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return ' '
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}
