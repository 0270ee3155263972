// Package strategy chooses the persona's reply for each counterpart message.
//
// The engine keeps no session state itself: persona mood, trust and the
// recent-reply ring live on the session and are passed in by pointer, so the
// caller decides when those mutations are committed.
package strategy

import (
	"sync"

	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
)

// Rand is the random source used for reply selection and stylistic
// variation. *math/rand/v2.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Branch names the reply family that produced a reply.
type Branch string

// Reply branches, in selection priority order.
const (
	BranchGreeting   Branch = "greeting"
	BranchFarewell   Branch = "farewell"
	BranchSmallTalk  Branch = "small_talk"
	BranchEngagement Branch = "engagement"
	BranchAmbiguous  Branch = "ambiguous"
	BranchFallback   Branch = "fallback"
	BranchClosing    Branch = "closing"
)

// Input is everything the engine reads for one turn.
type Input struct {
	Text string
	// Turn counts counterpart messages so far, including this one.
	Turn           int
	Phase          domain.Phase
	Classification domain.ClassificationResult
	Extraction     domain.ExtractionResult
	// FraudType and Flagged are the sticky session-level verdicts.
	FraudType     domain.FraudType
	Flagged       bool
	MaxConfidence float64
	Known         domain.Intelligence

	Persona *domain.Persona
	Recent  *domain.ReplyHistory
}

// Output is the chosen reply and how it was reached.
type Output struct {
	Reply    string   `json:"reply"`
	Branch   Branch   `json:"branch"`
	Analysis Analysis `json:"analysis"`
}

// Engine selects replies. It is safe for concurrent use; draws from the
// random source are serialized.
type Engine struct {
	cfg config.StrategyTuning

	mu  sync.Mutex
	rng Rand
}

// New creates an engine drawing from rng.
func New(cfg config.StrategyTuning, rng Rand) *Engine {
	return &Engine{cfg: cfg, rng: rng}
}

// Respond analyzes the message, updates persona mood and trust, and returns
// a reply that does not repeat one in in.Recent verbatim.
func (e *Engine) Respond(in Input) Output {
	a := Analyze(in.Text)
	if in.Persona != nil {
		e.updateMood(in.Persona, in.Classification, a)
	}

	branch, reply := e.choose(in, a)
	if reply == "" {
		branch, reply = BranchFallback, e.pick(universalReplies)
	}
	reply = e.remember(reply, in.Recent)
	return Output{Reply: reply, Branch: branch, Analysis: a}
}

// Closing returns a parting reply for a session that is ending.
func (e *Engine) Closing(recent *domain.ReplyHistory) string {
	return e.remember(e.pick(closingReplies), recent)
}

func (e *Engine) updateMood(p *domain.Persona, cls domain.ClassificationResult, a Analysis) {
	switch {
	case cls.IsScam && cls.Confidence > e.cfg.MoodConfidence:
		switch {
		case a.Fear:
			p.Mood = domain.MoodWorried
		case a.Urgency:
			p.Mood = domain.MoodConfused
		default:
			p.Mood = domain.MoodSuspicious
		}
		p.AdjustTrust(-e.cfg.TrustPenalty)
	case !cls.IsScam:
		if a.Greeting {
			p.Mood = domain.MoodHappy
			p.AdjustTrust(e.cfg.TrustReward)
		} else {
			p.Mood = domain.MoodNeutral
		}
	}
}

func (e *Engine) choose(in Input, a Analysis) (Branch, string) {
	cls := in.Classification
	confidence := max(cls.Confidence, in.MaxConfidence)

	switch {
	case in.Turn <= 1 && isBareGreeting(in.Text):
		return BranchGreeting, e.flair(e.pick(greetingReplies))
	case a.Goodbye:
		if in.Flagged || cls.IsScam {
			return BranchFarewell, e.lastAsk(in.Known)
		}
		return BranchFarewell, e.pick(goodbyeReplies)
	case !in.Flagged && !cls.IsScam && cls.Confidence < e.cfg.EngageConfidence:
		return BranchSmallTalk, e.smallTalk(in.Text)
	case (in.Flagged || cls.IsScam) && confidence > e.cfg.EngageConfidence:
		return BranchEngagement, e.engage(in)
	default:
		return BranchAmbiguous, e.flair(e.pick(ambiguousReplies))
	}
}

// remember mutates reply until it is absent from recent, then records it.
func (e *Engine) remember(reply string, recent *domain.ReplyHistory) string {
	if recent == nil {
		return reply
	}
	if recent.Contains(reply) {
		reply = e.mutate(reply, recent)
	}
	recent.Push(reply)
	return reply
}

func (e *Engine) pick(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[e.intN(len(lines))]
}

func (e *Engine) intN(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.IntN(n)
}

func (e *Engine) float() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}
