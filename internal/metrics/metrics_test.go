package metrics

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/honeytrap/internal/domain"
)

func intel(upi, phones int, keywords ...string) domain.Intelligence {
	in := domain.Intelligence{}
	for i := 0; i < upi; i++ {
		in.Merge(domain.ExtractionItem{Type: domain.EntityPaymentHandle, Value: fmt.Sprintf("u%d@ybl", i), Normalized: fmt.Sprintf("u%d@ybl", i), Confidence: 0.9})
	}
	for i := 0; i < phones; i++ {
		n := fmt.Sprintf("98765%05d", i)
		in.Merge(domain.ExtractionItem{Type: domain.EntityPhone, Value: n, Normalized: n, Confidence: 0.8})
	}
	for _, k := range keywords {
		in.AddKeyword(k)
	}
	return in
}

func TestExtractionScore(t *testing.T) {
	assert.Equal(t, 0.0, ExtractionScore(domain.Intelligence{}))
	assert.InDelta(t, 0.25, ExtractionScore(intel(1, 1, "urgent")), 1e-9)
	assert.Equal(t, 1.0, ExtractionScore(intel(5, 5)))
}

func TestEngagementScoreAndRating(t *testing.T) {
	r := Record{TurnCount: 20, EngagementMS: 15 * 60000, IntelligenceItems: 6, ExtractionScore: 1, Consistency: 1}
	assert.Equal(t, 100.0, EngagementScore(r))
	assert.Equal(t, "excellent", Rating(EngagementScore(r)))

	r = Record{TurnCount: 4, Consistency: 1}
	assert.Equal(t, 11.0, EngagementScore(r))
	assert.Equal(t, "failed", Rating(11))
	assert.Equal(t, "poor", Rating(20))
	assert.Equal(t, "average", Rating(40))
	assert.Equal(t, "good", Rating(60))
}

func TestTrackerAggregatesByConversation(t *testing.T) {
	tr := NewTracker()
	tr.ObserveTurn(domain.TurnRecord{SessionID: "a", TurnCount: 2, Engagement: 2 * time.Second, Intelligence: intel(1, 0)})
	tr.ObserveTurn(domain.TurnRecord{SessionID: "a", TurnCount: 4, Engagement: 10 * time.Second, Intelligence: intel(1, 1), ScamDetected: true, Violations: 1, FellBack: true})
	tr.ObserveTurn(domain.TurnRecord{SessionID: "b", TurnCount: 2, Engagement: 4 * time.Second, Ended: true})

	s := tr.Snapshot()
	assert.Equal(t, 2, s.Session.TotalConversations)
	assert.Equal(t, 3, s.Session.TotalTurns)
	assert.Equal(t, 1.5, s.Session.AverageTurns)
	assert.Equal(t, int64(7000), s.Session.AverageDurationMS)
	assert.Equal(t, 1.0, s.Session.AverageIntelligenceItems)

	assert.Equal(t, 6, s.Scoring.TurnScore)
	assert.Equal(t, int64(14), s.Scoring.DurationScore)
	assert.Equal(t, 10, s.Scoring.IntelligenceScore)
	assert.Equal(t, 3, s.Scoring.StabilityPenalty)
	assert.Equal(t, 1, s.Scoring.ScamsDetected)
	assert.Equal(t, 1, s.Scoring.FallbackReplies)
	assert.Equal(t, 1, s.Scoring.ConversationsEnded)
	assert.InDelta(t, 6+14+10+2.3-3, s.Scoring.EstimatedTotal, 1e-9)

	require.Len(t, s.Recent, 3)
	assert.Equal(t, 0.5, s.Recent[1].Consistency)
}

func TestTrackerKeepsRecentRing(t *testing.T) {
	tr := NewTracker()
	for i := 0; i < 25; i++ {
		tr.ObserveTurn(domain.TurnRecord{SessionID: fmt.Sprintf("s%d", i), TurnCount: 2})
	}
	s := tr.Snapshot()
	require.Len(t, s.Recent, recentLimit)
	assert.Equal(t, "s15", s.Recent[0].SessionID)
	assert.Equal(t, "s24", s.Recent[recentLimit-1].SessionID)
}

func TestTrackerForgetKeepsTotals(t *testing.T) {
	tr := NewTracker()
	tr.ObserveTurn(domain.TurnRecord{SessionID: "a", Engagement: 5 * time.Second, Intelligence: intel(2, 0)})
	tr.Forget("a")
	s := tr.Snapshot()
	assert.Equal(t, 1, s.Session.TotalConversations)
	assert.Equal(t, 10, s.Scoring.IntelligenceScore)

	tr.Reset()
	s = tr.Snapshot()
	assert.Equal(t, 0, s.Session.TotalConversations)
	assert.Empty(t, s.Recent)
}

func TestTrackerConcurrentObserve(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				tr.ObserveTurn(domain.TurnRecord{SessionID: fmt.Sprintf("s%d", i), TurnCount: 2 * (j + 1)})
				_ = tr.Snapshot()
			}
		}(i)
	}
	wg.Wait()
	s := tr.Snapshot()
	assert.Equal(t, 8, s.Session.TotalConversations)
	assert.Equal(t, 400, s.Session.TotalTurns)
}
