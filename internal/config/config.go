// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port            string
	APIKey          string
	FrontendURL     string
	DBPath          string
	TuningFile      string
	LogLevel        slog.Level
	RNGSeed         uint64
	Session         SessionConfig
	Report          ReportConfig
	RateLimit       RateLimitConfig
	ConversationLog ConversationLogConfig
	Tuning          Tuning
}

// SessionConfig controls idle-session reclamation.
type SessionConfig struct {
	IdleTimeout          time.Duration
	HousekeepingInterval time.Duration
	DatabaseMaxRetries   int
	DatabaseRetryDelay   time.Duration
}

// ReportConfig controls terminal report delivery.
type ReportConfig struct {
	URL        string
	GRPCAddr   string
	GRPCMethod string
	QueueSize  int
	Timeout    time.Duration
	MaxRetries int
}

// Enabled reports whether any delivery target is configured.
func (r ReportConfig) Enabled() bool {
	return r.URL != "" || r.GRPCAddr != ""
}

// RateLimitConfig controls the per-client request rate limit.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		APIKey:      getEnv("API_KEY", ""),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/honeytrap.db"),
		TuningFile:  getEnv("TUNING_FILE", ""),
		LogLevel:    getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		RNGSeed:     uint64(getEnvInt("RNG_SEED", 0)),
		Session: SessionConfig{
			IdleTimeout:          getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
			HousekeepingInterval: getEnvDuration("HOUSEKEEPING_INTERVAL", 5*time.Minute),
			DatabaseMaxRetries:   getEnvInt("DB_MAX_RETRIES", 3),
			DatabaseRetryDelay:   getEnvDuration("DB_RETRY_BASE_DELAY", 100*time.Millisecond),
		},
		Report: ReportConfig{
			URL:        getEnv("REPORT_URL", ""),
			GRPCAddr:   getEnv("REPORT_GRPC_ADDR", ""),
			GRPCMethod: getEnv("REPORT_GRPC_METHOD", "/honeytrap.v1.ReportService/Submit"),
			QueueSize:  getEnvInt("REPORT_QUEUE_SIZE", 256),
			Timeout:    getEnvDuration("REPORT_TIMEOUT", 5*time.Second),
			MaxRetries: getEnvInt("REPORT_MAX_RETRIES", 3),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
			Burst: getEnvInt("RATE_LIMIT_BURST", 20),
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", true),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	tuning, err := LoadTuning(cfg.TuningFile)
	if err != nil {
		return nil, fmt.Errorf("load tuning: %w", err)
	}
	cfg.Tuning = tuning

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Session.IdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be > 0")
	}
	if c.Session.HousekeepingInterval <= 0 {
		return fmt.Errorf("HOUSEKEEPING_INTERVAL must be > 0")
	}
	if c.Session.DatabaseMaxRetries <= 0 {
		return fmt.Errorf("DB_MAX_RETRIES must be > 0")
	}
	if c.Report.QueueSize <= 0 {
		return fmt.Errorf("REPORT_QUEUE_SIZE must be > 0")
	}
	if c.Report.Timeout <= 0 {
		return fmt.Errorf("REPORT_TIMEOUT must be > 0")
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return c.Tuning.Validate()
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
