// Package domain contains core domain types for the honeytrap engagement pipeline.
package domain

import "strings"

// Phase is a conversation-state controller state.
type Phase string

// Conversation phases.
const (
	PhaseInitial          Phase = "INITIAL"
	PhaseGreeting         Phase = "GREETING"
	PhaseBuildingRapport  Phase = "BUILDING_RAPPORT"
	PhaseFinancialContext Phase = "FINANCIAL_CONTEXT"
	PhaseRequest          Phase = "REQUEST"
	PhaseExtraction       Phase = "EXTRACTION"
	PhaseSuspicious       Phase = "SUSPICIOUS"
	PhaseClosing          Phase = "CLOSING"
)

// Phases lists every declared phase.
var Phases = []Phase{
	PhaseInitial,
	PhaseGreeting,
	PhaseBuildingRapport,
	PhaseFinancialContext,
	PhaseRequest,
	PhaseExtraction,
	PhaseSuspicious,
	PhaseClosing,
}

// Valid reports whether p is one of the declared phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseInitial, PhaseGreeting, PhaseBuildingRapport, PhaseFinancialContext,
		PhaseRequest, PhaseExtraction, PhaseSuspicious, PhaseClosing:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave p.
func (p Phase) Terminal() bool {
	return p == PhaseClosing
}

// Rank orders phases along the forward engagement track.
// SUSPICIOUS sits off the track and ranks -1.
func (p Phase) Rank() int {
	switch p {
	case PhaseInitial:
		return 0
	case PhaseGreeting:
		return 1
	case PhaseBuildingRapport:
		return 2
	case PhaseFinancialContext:
		return 3
	case PhaseRequest:
		return 4
	case PhaseExtraction:
		return 5
	case PhaseClosing:
		return 6
	default:
		return -1
	}
}

// ParsePhase converts s to a Phase, falling back to INITIAL for unknown values.
func ParsePhase(s string) Phase {
	p := Phase(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return PhaseInitial
	}
	return p
}
