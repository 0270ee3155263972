package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_KEY", "secret")
	t.Setenv("SESSION_IDLE_TIMEOUT", "45m")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.Session.IdleTimeout != 45*time.Minute {
		t.Errorf("expected idle timeout 45m, got %v", cfg.Session.IdleTimeout)
	}
	if cfg.LogLevel.String() != "DEBUG" {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.Tuning.Classifier.Threshold != 0.60 {
		t.Errorf("expected default threshold, got %v", cfg.Tuning.Classifier.Threshold)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("API_KEY", "")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "API_KEY") {
		t.Fatalf("expected API_KEY error, got %v", err)
	}
}

func TestLoadTuningOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	body := `version: v1
classifier:
  threshold: 0.5
safety:
  lengths:
    SUSPICIOUS: {min: 10, max: 90}
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write tuning: %v", err)
	}

	tuning, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning failed: %v", err)
	}
	if tuning.Classifier.Threshold != 0.5 {
		t.Errorf("threshold not overlaid: %v", tuning.Classifier.Threshold)
	}
	if tuning.Classifier.UrgencyMultiplier != 1.4 {
		t.Errorf("untouched value lost: %v", tuning.Classifier.UrgencyMultiplier)
	}
	if got := tuning.Safety.Bounds(domain.PhaseSuspicious); got.Max != 90 {
		t.Errorf("expected suspicious max 90, got %d", got.Max)
	}
	if got := tuning.Safety.Bounds(domain.PhaseRequest); got.Max != 200 {
		t.Errorf("expected request bounds kept, got %+v", got)
	}
}

func TestTuningValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tuning)
	}{
		{"version", func(tu *Tuning) { tu.Version = "v0" }},
		{"message cap", func(tu *Tuning) { tu.Input.MaxMessageRunes = 0 }},
		{"weight range", func(tu *Tuning) { tu.Classifier.RuleWeight = 1.5 }},
		{"multiplier", func(tu *Tuning) { tu.Classifier.UrgencyMultiplier = 0.5 }},
		{"bounds", func(tu *Tuning) {
			tu.Safety.Lengths[domain.PhaseClosing] = LengthBounds{Min: 50, Max: 10}
		}},
		{"unknown phase", func(tu *Tuning) {
			tu.Safety.Lengths[domain.Phase("NEGOTIATING")] = LengthBounds{Min: 1, Max: 10}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tu := DefaultTuning()
			tt.mutate(&tu)
			if err := tu.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("default tuning invalid: %v", err)
	}
}
