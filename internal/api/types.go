package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
)

// Timestamp accepts epoch milliseconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			t.Time = time.UnixMilli(ms).UTC()
			return nil
		}
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid timestamp %q", s)
		}
		t.Time = parsed
		return nil
	}
	ms, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %s", b)
	}
	t.Time = time.UnixMilli(int64(ms)).UTC()
	return nil
}

// MarshalJSON writes epoch milliseconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

// WireMessage is a message as sent by clients. Content is the legacy field
// name for Text.
type WireMessage struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Content   string    `json:"content,omitempty"`
	Timestamp Timestamp `json:"timestamp"`
}

func (m WireMessage) text() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Content
}

func (m WireMessage) toDomain() domain.Message {
	sender := m.Sender
	if sender == "" {
		sender = domain.SenderCounterpart
	}
	return domain.Message{Sender: sender, Text: m.text(), Timestamp: m.Timestamp.Time}
}

// HoneypotRequest is the body of POST /api/honeypot.
type HoneypotRequest struct {
	SessionID           string          `json:"sessionId"`
	Message             *WireMessage    `json:"message"`
	ConversationHistory []WireMessage   `json:"conversationHistory"`
	Metadata            domain.Metadata `json:"metadata"`
}

// ConversationRequest is the legacy body of POST /api/conversation.
type ConversationRequest struct {
	ConversationID string          `json:"conversation_id"`
	Message        *WireMessage    `json:"message"`
	History        []WireMessage   `json:"history"`
	Metadata       domain.Metadata `json:"metadata"`
}

// honeypot translates the legacy shape into the main request.
func (c ConversationRequest) honeypot() HoneypotRequest {
	req := HoneypotRequest{
		SessionID:           c.ConversationID,
		ConversationHistory: c.History,
		Metadata:            c.Metadata,
	}
	if c.Message != nil {
		m := *c.Message
		if m.Sender == "" {
			m.Sender = domain.SenderCounterpart
		}
		m.Text = m.text()
		if m.Timestamp.IsZero() {
			m.Timestamp = Timestamp{time.Now().UTC()}
		}
		req.Message = &m
	}
	return req
}

// ReplyResponse is the success body.
type ReplyResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

// ErrorResponse is the failure body.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
