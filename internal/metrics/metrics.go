// Package metrics tracks engagement statistics across conversations and
// estimates how well the honeypot is performing.
package metrics

import (
	"math"
	"sync"
	"time"

	"github.com/ashureev/honeytrap/internal/domain"
)

const recentLimit = 10

// Record is the latest state of one conversation.
type Record struct {
	SessionID         string       `json:"session_id"`
	TurnCount         int          `json:"turn_count"`
	EngagementMS      int64        `json:"engagement_duration_ms"`
	ExtractionScore   float64      `json:"extraction_score"`
	Consistency       float64      `json:"persona_consistency"`
	IntelligenceItems int          `json:"intelligence_items"`
	ScamDetected      bool         `json:"is_scam"`
	MaxConfidence     float64      `json:"scam_confidence"`
	Phase             domain.Phase `json:"state"`
	EngagementScore   float64      `json:"engagement_score"`
	Rating            string       `json:"rating"`
	Timestamp         time.Time    `json:"timestamp"`
}

// SessionStats are averages over every conversation seen.
type SessionStats struct {
	TotalConversations       int     `json:"totalConversations"`
	TotalTurns               int     `json:"totalTurns"`
	AverageTurns             float64 `json:"averageTurnsPerConversation"`
	AverageDurationMS        int64   `json:"averageDurationMs"`
	AverageExtractionScore   float64 `json:"averageExtractionScore"`
	AverageIntelligenceItems float64 `json:"averageIntelligenceItems"`
	AverageLatencyMS         float64 `json:"averageLatencyMs"`
}

// Scoring is the estimated evaluation score and its parts.
type Scoring struct {
	TurnScore          int     `json:"turnScore"`
	DurationScore      int64   `json:"durationScore"`
	IntelligenceScore  int     `json:"intelligenceScore"`
	ExtractionScore    float64 `json:"extractionScore"`
	StabilityPenalty   int     `json:"stabilityPenalty"`
	EstimatedTotal     float64 `json:"estimatedTotalScore"`
	SafetyViolations   int     `json:"safetyViolations"`
	ScamsDetected      int     `json:"scamsDetected"`
	FallbackReplies    int     `json:"fallbackReplies"`
	ConversationsEnded int     `json:"conversationsEnded"`
}

// Snapshot is the tracker state exposed to operators.
type Snapshot struct {
	Session SessionStats `json:"session"`
	Scoring Scoring      `json:"scoring"`
	Recent  []Record     `json:"recentConversations"`
}

type conversation struct {
	turns     int
	fallbacks int
	duration  time.Duration
	items     int
	score     float64
	scam      bool
	ended     bool
}

type totals struct {
	conversations int
	turns         int
	duration      time.Duration
	items         int
	score         float64
	violations    int
	fallbacks     int
	scams         int
	ended         int
	latency       time.Duration
}

// Tracker aggregates turn records. It is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	live   map[string]*conversation
	totals totals
	recent []Record
	now    func() time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{live: make(map[string]*conversation), now: time.Now}
}

// ObserveTurn folds rec into the running totals.
func (t *Tracker) ObserveTurn(rec domain.TurnRecord) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c, ok := t.live[rec.SessionID]
	if !ok {
		c = &conversation{}
		t.live[rec.SessionID] = c
		t.totals.conversations++
	}

	items := len(rec.Intelligence.Items)
	score := ExtractionScore(rec.Intelligence)

	// Per-conversation figures are levels; totals move by their deltas.
	t.totals.turns++
	t.totals.latency += rec.Latency
	t.totals.violations += rec.Violations
	t.totals.duration += rec.Engagement - c.duration
	t.totals.items += items - c.items
	t.totals.score += score - c.score
	if rec.FellBack {
		t.totals.fallbacks++
		c.fallbacks++
	}
	if rec.ScamDetected && !c.scam {
		t.totals.scams++
	}
	if rec.Ended && !c.ended {
		t.totals.ended++
	}

	c.turns++
	c.duration = rec.Engagement
	c.items = items
	c.score = score
	c.scam = c.scam || rec.ScamDetected
	c.ended = c.ended || rec.Ended

	r := Record{
		SessionID:         rec.SessionID,
		TurnCount:         rec.TurnCount,
		EngagementMS:      rec.Engagement.Milliseconds(),
		ExtractionScore:   score,
		Consistency:       1 - float64(c.fallbacks)/float64(c.turns),
		IntelligenceItems: items,
		ScamDetected:      rec.ScamDetected,
		MaxConfidence:     rec.MaxConfidence,
		Phase:             rec.Phase,
		Timestamp:         t.now().UTC(),
	}
	r.EngagementScore = EngagementScore(r)
	r.Rating = Rating(r.EngagementScore)

	t.recent = append(t.recent, r)
	if len(t.recent) > recentLimit {
		t.recent = append(t.recent[:0], t.recent[len(t.recent)-recentLimit:]...)
	}
}

// Forget drops the live state of a reclaimed conversation. Totals keep its
// contribution.
func (t *Tracker) Forget(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.live, sessionID)
}

// Reset clears every statistic.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = make(map[string]*conversation)
	t.totals = totals{}
	t.recent = nil
}

// Snapshot returns the current statistics.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	tt := t.totals
	n := tt.conversations
	if n == 0 {
		n = 1
	}
	turns := tt.turns
	if turns == 0 {
		turns = 1
	}

	s := Snapshot{
		Session: SessionStats{
			TotalConversations:       tt.conversations,
			TotalTurns:               tt.turns,
			AverageTurns:             round(float64(tt.turns)/float64(n), 2),
			AverageDurationMS:        tt.duration.Milliseconds() / int64(n),
			AverageExtractionScore:   round(tt.score/float64(n), 4),
			AverageIntelligenceItems: round(float64(tt.items)/float64(n), 2),
			AverageLatencyMS:         round(float64(tt.latency.Microseconds())/1000/float64(turns), 2),
		},
		Scoring: Scoring{
			TurnScore:          tt.turns * 2,
			DurationScore:      tt.duration.Milliseconds() / 1000,
			IntelligenceScore:  tt.items * 5,
			ExtractionScore:    round(tt.score*10, 2),
			StabilityPenalty:   tt.violations * 3,
			SafetyViolations:   tt.violations,
			ScamsDetected:      tt.scams,
			FallbackReplies:    tt.fallbacks,
			ConversationsEnded: tt.ended,
		},
		Recent: append([]Record{}, t.recent...),
	}
	sc := s.Scoring
	s.Scoring.EstimatedTotal = round(float64(sc.TurnScore)+float64(sc.DurationScore)+
		float64(sc.IntelligenceScore)+tt.score*10-float64(sc.StabilityPenalty), 2)
	return s
}

// ExtractionScore weighs collected intelligence into [0,1].
func ExtractionScore(in domain.Intelligence) float64 {
	score := 15*in.Count(domain.EntityPaymentHandle) +
		20*in.Count(domain.EntityBankAccount) +
		10*in.Count(domain.EntityURL) +
		8*in.Count(domain.EntityPhone) +
		2*len(in.SuspiciousKeywords)
	return math.Min(float64(score)/100, 1)
}

// EngagementScore rates one conversation out of 100.
func EngagementScore(r Record) float64 {
	score := math.Min(float64(r.TurnCount)*1.5, 30)
	score += math.Min(float64(r.EngagementMS)/60000*2, 25)
	score += math.Min(float64(r.IntelligenceItems)*5, 30)
	score += r.ExtractionScore * 10
	score += r.Consistency * 5
	return round(math.Min(score, 100), 2)
}

// Rating buckets an engagement score.
func Rating(score float64) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "average"
	case score >= 20:
		return "poor"
	default:
		return "failed"
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
