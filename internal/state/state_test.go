package state

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
)

func newController() *Controller {
	return New(config.DefaultTuning().State)
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		current domain.Phase
		sig     Signals
		want    domain.TransitionResult
	}{
		{"first message greets", domain.PhaseInitial, Signals{TurnCount: 1}, domain.TransitionResult{Next: domain.PhaseGreeting}},
		{"zero signals", domain.PhaseInitial, Signals{}, domain.TransitionResult{Next: domain.PhaseGreeting}},
		{"unknown phase heals", domain.Phase("BOGUS"), Signals{}, domain.TransitionResult{Next: domain.PhaseGreeting}},
		{"rapport by turns", domain.PhaseGreeting, Signals{TurnCount: 3}, domain.TransitionResult{Next: domain.PhaseBuildingRapport}},
		{"confidence alone stops at rapport", domain.PhaseGreeting, Signals{TurnCount: 1, MaxConfidence: 0.9}, domain.TransitionResult{Next: domain.PhaseBuildingRapport}},
		{"financial context", domain.PhaseBuildingRapport, Signals{TurnCount: 4, MaxConfidence: 0.45, HasFinancialContext: true}, domain.TransitionResult{Next: domain.PhaseFinancialContext}},
		{"request", domain.PhaseFinancialContext, Signals{TurnCount: 5, MaxConfidence: 0.65, HasFinancialContext: true}, domain.TransitionResult{Next: domain.PhaseRequest}},
		{"extraction on direct request", domain.PhaseRequest, Signals{TurnCount: 6, MaxConfidence: 0.8, HasDirectRequest: true}, domain.TransitionResult{Next: domain.PhaseExtraction}},
		{"extraction once items arrive", domain.PhaseRequest, Signals{TurnCount: 6, MaxConfidence: 0.65, ExtractionProgress: 0.25}, domain.TransitionResult{Next: domain.PhaseExtraction}},
		{"never regresses", domain.PhaseRequest, Signals{TurnCount: 7}, domain.TransitionResult{Next: domain.PhaseRequest}},
		{"stalling goes suspicious", domain.PhaseRequest, Signals{ConsecutiveDelays: 3}, domain.TransitionResult{Next: domain.PhaseSuspicious}},
		{"suspicious recovers", domain.PhaseSuspicious, Signals{TurnCount: 8, MaxConfidence: 0.65, HasFinancialContext: true}, domain.TransitionResult{Next: domain.PhaseRequest}},
		{"suspicious holds while stalling", domain.PhaseSuspicious, Signals{ConsecutiveDelays: 5}, domain.TransitionResult{Next: domain.PhaseSuspicious}},
		{"progress saturates", domain.PhaseExtraction, Signals{ExtractionProgress: 1}, domain.TransitionResult{Next: domain.PhaseClosing, ShouldEnd: true}},
		{"turn ceiling", domain.PhaseGreeting, Signals{TurnCount: 41}, domain.TransitionResult{Next: domain.PhaseClosing, ShouldEnd: true}},
		{"external termination", domain.PhaseGreeting, Signals{Terminate: true}, domain.TransitionResult{Next: domain.PhaseClosing, ShouldEnd: true}},
		{"closing is terminal", domain.PhaseClosing, Signals{}, domain.TransitionResult{Next: domain.PhaseClosing, ShouldEnd: true}},
	}
	c := newController()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Transition(tt.current, tt.sig))
		})
	}
}

func TestTransitionStaysInDeclaredPhases(t *testing.T) {
	c := newController()
	rng := rand.New(rand.NewPCG(7, 11))
	for i := 0; i < 5000; i++ {
		current := domain.Phases[rng.IntN(len(domain.Phases))]
		sig := Signals{
			MaxConfidence:       rng.Float64(),
			TurnCount:           rng.IntN(60),
			HasFinancialContext: rng.IntN(2) == 0,
			HasDirectRequest:    rng.IntN(2) == 0,
			ExtractionProgress:  float64(rng.IntN(5)) / 4,
			ConsecutiveDelays:   rng.IntN(5),
			Terminate:           rng.IntN(20) == 0,
		}
		r := c.Transition(current, sig)
		require.True(t, r.Next.Valid(), "phase %q from %s %+v", r.Next, current, sig)
		if r.ShouldEnd {
			require.Equal(t, domain.PhaseClosing, r.Next)
		}
		if current != domain.PhaseSuspicious && r.Next != domain.PhaseSuspicious {
			require.GreaterOrEqual(t, r.Next.Rank(), current.Rank(), "regressed from %s to %s", current, r.Next)
		}
	}
}

func TestApplyRefusesEndedSession(t *testing.T) {
	c := newController()
	s := domain.NewSession("s1", domain.Metadata{}, time.Now())

	r, err := c.Apply(s, Signals{TurnCount: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseGreeting, s.Phase)
	assert.Equal(t, domain.PhaseInitial, s.PreviousPhase)
	assert.False(t, r.ShouldEnd)

	r, err = c.Apply(s, Signals{Terminate: true})
	require.NoError(t, err)
	assert.True(t, r.ShouldEnd)
	assert.True(t, s.Ended)

	_, err = c.Apply(s, Signals{TurnCount: 2})
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, domain.PhaseClosing, s.Phase)
	assert.Equal(t, domain.PhaseGreeting, s.PreviousPhase)
}

func TestExtractionProgress(t *testing.T) {
	var in domain.Intelligence
	assert.Zero(t, ExtractionProgress(in))

	in.Merge(domain.ExtractionItem{Type: domain.EntityPaymentHandle, Value: "a@upi", Normalized: "a@upi", Confidence: 0.9})
	in.Merge(domain.ExtractionItem{Type: domain.EntityPaymentHandle, Value: "b@upi", Normalized: "b@upi", Confidence: 0.9})
	in.Merge(domain.ExtractionItem{Type: domain.EntityName, Value: "Ravi", Normalized: "ravi", Confidence: 0.75})
	assert.InDelta(t, 0.25, ExtractionProgress(in), 1e-9)

	in.Merge(domain.ExtractionItem{Type: domain.EntityPhone, Value: "9876543210", Normalized: "9876543210", Confidence: 0.9})
	in.Merge(domain.ExtractionItem{Type: domain.EntityURL, Value: "x.tk", Normalized: "x.tk", Confidence: 0.9})
	in.Merge(domain.ExtractionItem{Type: domain.EntityBankAccount, Value: "123456789", Normalized: "123456789", Confidence: 0.7})
	assert.InDelta(t, 1.0, ExtractionProgress(in), 1e-9)
}
