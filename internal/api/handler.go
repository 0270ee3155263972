// Package api provides HTTP handlers for the honeytrap API.
//
//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ashureev/honeytrap/internal/domain"
	"github.com/ashureev/honeytrap/internal/metrics"
	"github.com/ashureev/honeytrap/internal/pipeline"
)

const (
	// Version is reported by the health endpoint.
	Version = "1.0.0"

	defaultMaxBodyBytes = 1 << 20
)

// Turner runs one conversation turn.
type Turner interface {
	Handle(ctx context.Context, req pipeline.Request) (string, error)
}

// Pinger reports store reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Snapshotter exposes engagement statistics.
type Snapshotter interface {
	Snapshot() metrics.Snapshot
}

// Handler serves the honeypot endpoints.
type Handler struct {
	turns        Turner
	store        Pinger
	stats        Snapshotter
	limiter      *RateLimiter
	maxBodyBytes int64
	started      time.Time
	logger       *slog.Logger
}

// NewHandler creates a Handler. limiter may be nil to disable rate limiting.
func NewHandler(turns Turner, store Pinger, stats Snapshotter, limiter *RateLimiter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		turns:        turns,
		store:        store,
		stats:        stats,
		limiter:      limiter,
		maxBodyBytes: defaultMaxBodyBytes,
		started:      time.Now(),
		logger:       logger,
	}
}

// RegisterRoutes mounts the conversation endpoints behind auth, plus the
// public health and metrics endpoints.
func (h *Handler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/health", h.Health)
	r.Get("/metrics", h.Metrics)

	r.Group(func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}
		if h.limiter != nil {
			r.Use(h.limiter.Middleware)
		}
		r.Post("/api/honeypot", h.HandleHoneypot)
		r.Post("/api/conversation", h.HandleConversation)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status": "error", "message": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Status: "error", Message: message})
}

// decode reads a JSON body capped at the handler's size limit.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// HandleHoneypot handles POST /api/honeypot.
func (h *Handler) HandleHoneypot(w http.ResponseWriter, r *http.Request) {
	var req HoneypotRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, req)
}

// HandleConversation handles the legacy POST /api/conversation shape.
func (h *Handler) HandleConversation(w http.ResponseWriter, r *http.Request) {
	var req ConversationRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.respond(w, r, req.honeypot())
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, req HoneypotRequest) {
	if req.SessionID == "" || req.Message == nil || req.Message.text() == "" {
		Error(w, http.StatusBadRequest, "Invalid request: sessionId and message.text are required")
		return
	}

	history := make([]domain.Message, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		if m.text() == "" {
			continue
		}
		history = append(history, m.toDomain())
	}

	reply, err := h.turns.Handle(r.Context(), pipeline.Request{
		SessionID: req.SessionID,
		Sender:    req.Message.Sender,
		Text:      req.Message.text(),
		Timestamp: req.Message.Timestamp.Time,
		History:   history,
		Metadata:  req.Metadata,
	})
	if err != nil {
		var ie *pipeline.InputError
		if errors.As(err, &ie) {
			Error(w, http.StatusBadRequest, "Invalid request: "+ie.Field+" is "+ie.Reason)
			return
		}
		h.logger.Error("Error processing request", "session_id", req.SessionID, "error", err)
		Error(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	JSON(w, http.StatusOK, ReplyResponse{Status: "success", Reply: reply})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Seconds(),
		"version":   Version,
		"store":     "ok",
	}
	status := http.StatusOK
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("Health check store ping failed", "error", err)
			body["status"] = "degraded"
			body["store"] = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	JSON(w, status, body)
}

// Metrics handles GET /metrics.
func (h *Handler) Metrics(w http.ResponseWriter, _ *http.Request) {
	if h.stats == nil {
		JSON(w, http.StatusOK, metrics.Snapshot{})
		return
	}
	JSON(w, http.StatusOK, h.stats.Snapshot())
}
