package domain

// Mood is the persona's emotional state.
type Mood string

// Moods.
const (
	MoodNeutral    Mood = "neutral"
	MoodHappy      Mood = "happy"
	MoodConfused   Mood = "confused"
	MoodWorried    Mood = "worried"
	MoodSuspicious Mood = "suspicious"
	MoodAnnoyed    Mood = "annoyed"
)

// Persona is the mutable part of the fictional identity a session presents.
type Persona struct {
	Mood  Mood    `json:"mood"`
	Trust float64 `json:"trust"`
}

// NewPersona returns a persona at neutral mood and medium trust.
func NewPersona() Persona {
	return Persona{Mood: MoodNeutral, Trust: 0.5}
}

// AdjustTrust shifts trust by delta, keeping it in [0,1].
func (p *Persona) AdjustTrust(delta float64) {
	p.Trust = clamp01(p.Trust + delta)
}

// ReplyHistory is a bounded ring of recent outgoing replies.
type ReplyHistory struct {
	Replies []string `json:"replies"`
	Limit   int      `json:"limit"`
}

// NewReplyHistory creates a history holding at most limit replies.
func NewReplyHistory(limit int) ReplyHistory {
	if limit <= 0 {
		limit = 10
	}
	return ReplyHistory{Replies: make([]string, 0, limit), Limit: limit}
}

// Push records reply, evicting the oldest entry when full.
func (h *ReplyHistory) Push(reply string) {
	if h.Limit <= 0 {
		h.Limit = 10
	}
	if len(h.Replies) >= h.Limit {
		copy(h.Replies, h.Replies[len(h.Replies)-h.Limit+1:])
		h.Replies = h.Replies[:h.Limit-1]
	}
	h.Replies = append(h.Replies, reply)
}

// Contains reports whether reply was sent recently.
func (h *ReplyHistory) Contains(reply string) bool {
	for _, r := range h.Replies {
		if r == reply {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (h ReplyHistory) Clone() ReplyHistory {
	out := ReplyHistory{Replies: make([]string, len(h.Replies)), Limit: h.Limit}
	copy(out.Replies, h.Replies)
	return out
}
