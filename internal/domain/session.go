package domain

import (
	"time"
)

// Sender roles.
const (
	SenderCounterpart = "scammer"
	SenderPersona     = "user"
)

// Message is one recorded conversation message. Immutable once recorded.
type Message struct {
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Turn      int       `json:"turn"`
}

// Metadata carries optional channel information supplied by the transport.
type Metadata struct {
	Channel  string `json:"channel"`
	Language string `json:"language"`
	Locale   string `json:"locale"`
}

// Session holds all mutable state of one engagement.
type Session struct {
	ID                   string        `json:"id"`
	CreatedAt            time.Time     `json:"created_at"`
	LastActivity         time.Time     `json:"last_activity"`
	Messages             []Message     `json:"messages"`
	History              []Message     `json:"history"`
	Phase                Phase         `json:"phase"`
	PreviousPhase        Phase         `json:"previous_phase"`
	MaxConfidence        float64       `json:"max_confidence"`
	ScamDetected         bool          `json:"scam_detected"`
	FraudType            FraudType     `json:"fraud_type,omitempty"`
	Intelligence         Intelligence  `json:"intelligence"`
	ConsecutiveDelays    int           `json:"consecutive_delays"`
	ConsecutiveFallbacks int           `json:"consecutive_fallbacks"`
	Persona              Persona       `json:"persona"`
	RecentReplies        ReplyHistory  `json:"recent_replies"`
	Metadata             Metadata      `json:"metadata"`
	TotalMessages        int           `json:"total_messages"`
	EngagementDuration   time.Duration `json:"engagement_duration"`
	Ended                bool          `json:"ended"`
	ReportSent           bool          `json:"report_sent"`
}

// NewSession creates a session in the INITIAL phase.
func NewSession(id string, meta Metadata, now time.Time) *Session {
	if meta.Channel == "" {
		meta.Channel = "Unknown"
	}
	if meta.Language == "" {
		meta.Language = "English"
	}
	if meta.Locale == "" {
		meta.Locale = "IN"
	}
	return &Session{
		ID:            id,
		CreatedAt:     now,
		LastActivity:  now,
		Messages:      []Message{},
		History:       []Message{},
		Phase:         PhaseInitial,
		Intelligence:  Intelligence{Items: []IntelItem{}, SuspiciousKeywords: []string{}},
		Persona:       NewPersona(),
		RecentReplies: NewReplyHistory(10),
		Metadata:      meta,
	}
}

// Record appends a message with the next turn index.
func (s *Session) Record(sender, text string, ts time.Time) Message {
	turn := 1
	if n := len(s.Messages); n > 0 {
		turn = s.Messages[n-1].Turn + 1
	}
	m := Message{Sender: sender, Text: text, Timestamp: ts, Turn: turn}
	s.Messages = append(s.Messages, m)
	s.TotalMessages++
	return m
}

// MergeHistory adds supplied history messages not already held, keyed by
// timestamp, sender and text.
func (s *Session) MergeHistory(history []Message) {
	for _, h := range history {
		seen := false
		for _, got := range s.History {
			if got.Timestamp.Equal(h.Timestamp) && got.Sender == h.Sender && got.Text == h.Text {
				seen = true
				break
			}
		}
		if !seen {
			s.History = append(s.History, h)
		}
	}
}

// RaiseConfidence lifts MaxConfidence to c if c is higher.
func (s *Session) RaiseConfidence(c float64) {
	c = clamp01(c)
	if c > s.MaxConfidence {
		s.MaxConfidence = c
	}
}

// CounterpartTexts returns the text of every recorded counterpart message.
func (s *Session) CounterpartTexts() []string {
	out := make([]string, 0, len(s.Messages))
	for _, m := range s.Messages {
		if m.Sender != SenderPersona {
			out = append(out, m.Text)
		}
	}
	return out
}

// TurnCount returns the number of recorded messages.
func (s *Session) TurnCount() int {
	return len(s.Messages)
}

// Clone returns a deep copy that can be mutated without touching s.
func (s *Session) Clone() *Session {
	c := *s
	c.Messages = append([]Message(nil), s.Messages...)
	c.History = append([]Message(nil), s.History...)
	c.Intelligence = s.Intelligence.Clone()
	c.RecentReplies = s.RecentReplies.Clone()
	return &c
}
