// Package state sequences the engagement phases of a conversation.
package state

import (
	"errors"

	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
)

// ErrSessionEnded is returned when a transition is requested for an ended session.
var ErrSessionEnded = errors.New("session has ended")

// Signals is the per-turn input to the controller. The zero value is valid.
type Signals struct {
	MaxConfidence       float64
	TurnCount           int
	HasFinancialContext bool
	HasDirectRequest    bool
	ExtractionProgress  float64
	ConsecutiveDelays   int
	Terminate           bool
}

// Controller maps (phase, signals) to the next phase. It has no state of its own.
type Controller struct {
	cfg config.StateTuning
}

// New creates a controller with the given bounds.
func New(cfg config.StateTuning) *Controller {
	return &Controller{cfg: cfg}
}

// Transition computes the next phase. It never returns an undeclared phase.
func (c *Controller) Transition(current domain.Phase, sig Signals) domain.TransitionResult {
	if !current.Valid() {
		current = domain.PhaseInitial
	}
	if current.Terminal() {
		return domain.TransitionResult{Next: domain.PhaseClosing, ShouldEnd: true}
	}
	if sig.Terminate || sig.ExtractionProgress >= 1 || sig.TurnCount > c.cfg.MaxTurns {
		return domain.TransitionResult{Next: domain.PhaseClosing, ShouldEnd: true}
	}
	if sig.ConsecutiveDelays > c.cfg.DelayBound {
		return domain.TransitionResult{Next: domain.PhaseSuspicious}
	}

	target := c.target(current, sig)
	if current == domain.PhaseSuspicious || target.Rank() > current.Rank() {
		return domain.TransitionResult{Next: target}
	}
	return domain.TransitionResult{Next: current}
}

// target is the furthest track phase the signals justify on their own.
func (c *Controller) target(current domain.Phase, sig Signals) domain.Phase {
	conf := sig.MaxConfidence
	money := sig.HasFinancialContext || sig.HasDirectRequest

	next := domain.PhaseGreeting
	if sig.TurnCount >= c.cfg.RapportTurns || conf >= c.cfg.RapportConfidence {
		next = domain.PhaseBuildingRapport
	}
	if money && conf >= c.cfg.FinancialConfidence {
		next = domain.PhaseFinancialContext
	}
	if money && conf >= c.cfg.RequestConfidence {
		next = domain.PhaseRequest
	}
	harvesting := sig.ExtractionProgress > 0 && current.Rank() >= domain.PhaseRequest.Rank()
	if (sig.HasDirectRequest && conf >= c.cfg.ExtractionConfidence) || harvesting {
		next = domain.PhaseExtraction
	}
	return next
}

// Apply transitions s in place. Once a transition ends the session, every
// further call fails with ErrSessionEnded and leaves s untouched.
func (c *Controller) Apply(s *domain.Session, sig Signals) (domain.TransitionResult, error) {
	if s.Ended {
		return domain.TransitionResult{Next: s.Phase, ShouldEnd: true}, ErrSessionEnded
	}
	r := c.Transition(s.Phase, sig)
	if r.Next != s.Phase {
		s.PreviousPhase = s.Phase
		s.Phase = r.Next
	}
	if r.ShouldEnd {
		s.Ended = true
	}
	return r, nil
}

// ExtractionProgress is the fraction of core intelligence categories holding
// at least one item.
func ExtractionProgress(in domain.Intelligence) float64 {
	filled := 0
	for _, t := range domain.CoreEntityTypes {
		if in.Has(t) {
			filled++
		}
	}
	return float64(filled) / float64(len(domain.CoreEntityTypes))
}
