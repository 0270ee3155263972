package transcript

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
)

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(Event{
		SessionID:  "sess-1",
		Direction:  DirectionInbound,
		Sender:     domain.SenderCounterpart,
		ContentRaw: "\x1b[31mURGENT\x1b[0m verify\u200b now",
	})

	path := filepath.Join(dir, "sess-1.ndjson")
	line := waitForLogLine(t, path)
	var got Event
	if err := json.Unmarshal([]byte(line), &got); err != nil {
		t.Fatalf("failed to unmarshal log line: %v", err)
	}
	if got.Content != "URGENT verify now" {
		t.Fatalf("unexpected Content: %q", got.Content)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected timestamp to be populated")
	}
}

func TestObserveTurnWritesBothDirections(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	global := filepath.Join(dir, "all", "all.ndjson")
	logger, err := New(Config{Enabled: true, Dir: dir, GlobalEnabled: true, GlobalPath: global}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger.ObserveTurn(domain.TurnRecord{
		SessionID:    "s2",
		Inbound:      domain.Message{Sender: domain.SenderCounterpart, Text: "send OTP", Timestamp: ts, Turn: 1},
		Outbound:     domain.Message{Sender: domain.SenderPersona, Text: "which OTP?", Timestamp: ts.Add(time.Second), Turn: 2},
		Phase:        domain.PhaseRequest,
		Confidence:   0.7,
		ScamDetected: true,
		FraudType:    domain.FraudOTP,
		Branch:       "engagement",
	})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	for _, path := range []string{filepath.Join(dir, "s2.ndjson"), global} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 2 {
			t.Fatalf("%s: expected 2 lines, got %d", path, len(lines))
		}
		var in, out Event
		if err := json.Unmarshal([]byte(lines[0]), &in); err != nil {
			t.Fatal(err)
		}
		if err := json.Unmarshal([]byte(lines[1]), &out); err != nil {
			t.Fatal(err)
		}
		if in.Direction != DirectionInbound || in.Turn != 1 || in.Content != "send OTP" {
			t.Fatalf("unexpected inbound event: %+v", in)
		}
		if out.Direction != DirectionOutbound || out.Branch != "engagement" || out.FraudType != domain.FraudOTP {
			t.Fatalf("unexpected outbound event: %+v", out)
		}
	}
}

func TestDisabledLoggerIsNoop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := New(Config{Enabled: false, Dir: dir}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Log(Event{SessionID: "x", ContentRaw: "hi"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no files, got %d", len(entries))
	}
}

func TestLogAfterCloseIsDropped(t *testing.T) {
	t.Parallel()

	logger, err := New(Config{Enabled: true, Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	_ = logger.Close()
	logger.Log(Event{SessionID: "late"})
	_ = logger.Close()
}

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"abc-123", "abc-123"},
		{"../../etc/passwd", "_.._etc_passwd"},
		{"", "unknown"},
		{"a b/c", "a_b_c"},
	}
	for _, tt := range tests {
		if got := safeName(tt.in); got != tt.want {
			t.Errorf("safeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func waitForLogLine(t *testing.T, path string) string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) > 0 {
				return lines[len(lines)-1]
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for log file %s", path)
	return ""
}
