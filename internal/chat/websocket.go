package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/honeytrap/internal/pipeline"
)

const (
	maxFrameBytes = 1 << 20
	writeTimeout  = 10 * time.Second
)

// Turner runs one conversation turn.
type Turner interface {
	Handle(ctx context.Context, req pipeline.Request) (string, error)
}

// inbound is a client frame. Type is "message" (default), "ping" or "terminate".
type inbound struct {
	Type      string `json:"type,omitempty"`
	Text      string `json:"text"`
	Sender    string `json:"sender,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// outbound is a server frame.
type outbound struct {
	Type  string `json:"type"`
	Reply string `json:"reply,omitempty"`
	Error string `json:"error,omitempty"`
}

// Handler upgrades GET /ws/conversation and runs one turn per text frame.
type Handler struct {
	turns         Turner
	sm            *SessionManager
	allowedOrigin string
	isDev         bool
}

// NewHandler creates a websocket conversation handler.
func NewHandler(turns Turner, sm *SessionManager, allowedOrigin string, isDev bool) *Handler {
	return &Handler{
		turns:         turns,
		sm:            sm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, `{"status": "error", "message": "session_id is required"}`, http.StatusBadRequest)
		return
	}
	slog.Info("WebSocket connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	ws.SetReadLimit(maxFrameBytes)
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.sm.Register(sessionID, ws)
	defer h.sm.Unregister(sessionID, ws)

	h.readLoop(r.Context(), ws, sessionID)
	slog.Info("Chat session ended", "session_id", sessionID)
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || h.allowedOrigin == "" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		typ, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else if ctx.Err() == nil {
				slog.Debug("WebSocket read ended", "error", err, "session_id", sessionID)
			}
			return
		}
		if typ != websocket.MessageText {
			_ = h.writeJSON(ctx, ws, outbound{Type: "error", Error: "text frames only"})
			continue
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = h.writeJSON(ctx, ws, outbound{Type: "error", Error: "invalid frame"})
			continue
		}

		switch msg.Type {
		case "ping":
			if err := h.writeJSON(ctx, ws, outbound{Type: "pong"}); err != nil {
				return
			}
			continue
		case "", "message", "terminate":
		default:
			_ = h.writeJSON(ctx, ws, outbound{Type: "error", Error: "unknown frame type"})
			continue
		}

		req := pipeline.Request{
			SessionID: sessionID,
			Sender:    msg.Sender,
			Text:      msg.Text,
			Terminate: msg.Type == "terminate",
		}
		if msg.Timestamp > 0 {
			req.Timestamp = time.UnixMilli(msg.Timestamp).UTC()
		}

		reply, err := h.turns.Handle(ctx, req)
		if err != nil {
			var ie *pipeline.InputError
			frame := outbound{Type: "error", Error: "internal error"}
			if errors.As(err, &ie) {
				frame.Error = ie.Error()
			} else {
				slog.Error("Chat turn failed", "session_id", sessionID, "error", err)
			}
			if err := h.writeJSON(ctx, ws, frame); err != nil {
				return
			}
			continue
		}

		if err := h.writeJSON(ctx, ws, outbound{Type: "reply", Reply: reply}); err != nil {
			slog.Debug("Failed to send reply", "error", err, "session_id", sessionID)
			return
		}
		if req.Terminate {
			return
		}
	}
}

func (h *Handler) writeJSON(ctx context.Context, ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
