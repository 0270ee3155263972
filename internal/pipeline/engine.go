// Package pipeline runs one counterpart message through classification,
// extraction, phase control, reply selection and safety screening.
package pipeline

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ashureev/honeytrap/internal/catalog"
	"github.com/ashureev/honeytrap/internal/classifier"
	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
	"github.com/ashureev/honeytrap/internal/extractor"
	"github.com/ashureev/honeytrap/internal/report"
	"github.com/ashureev/honeytrap/internal/safety"
	"github.com/ashureev/honeytrap/internal/state"
	"github.com/ashureev/honeytrap/internal/strategy"
)

// Incoming is one counterpart message.
type Incoming struct {
	Sender    string
	Text      string
	Timestamp time.Time
	History   []domain.Message
	// Hint optionally raises the classifier confidence.
	Hint *float64
	// Terminate asks the state controller to close the session.
	Terminate bool
}

func (in Incoming) validate(maxRunes int) error {
	if strings.TrimSpace(in.Text) == "" {
		return &InputError{Field: "message.text", Reason: "required"}
	}
	if maxRunes > 0 && utf8.RuneCountInString(in.Text) > maxRunes {
		return &InputError{Field: "message.text", Reason: fmt.Sprintf("exceeds %d characters", maxRunes)}
	}
	return nil
}

// clipHistory truncates every history text to maxRunes.
func clipHistory(history []domain.Message, maxRunes int) []domain.Message {
	if maxRunes <= 0 {
		return history
	}
	var out []domain.Message
	for i, m := range history {
		if utf8.RuneCountInString(m.Text) <= maxRunes {
			continue
		}
		if out == nil {
			out = append([]domain.Message(nil), history...)
		}
		out[i].Text = string([]rune(m.Text)[:maxRunes])
	}
	if out == nil {
		return history
	}
	return out
}

// Outcome is the result of one turn. Session is the mutated copy; the
// caller commits it.
type Outcome struct {
	Session        *domain.Session
	Reply          string
	Branch         strategy.Branch
	Classification domain.ClassificationResult
	Extraction     domain.ExtractionResult
	Transition     domain.TransitionResult
	Validation     domain.ValidationResult
	FellBack       bool
	NewItems       int
	// Report is set on the turn that ended the session.
	Report *domain.Report
}

// Record flattens the outcome for observers.
func (o Outcome) Record(latency time.Duration) domain.TurnRecord {
	s := o.Session
	rec := domain.TurnRecord{
		SessionID:     s.ID,
		Phase:         s.Phase,
		PreviousPhase: s.PreviousPhase,
		Confidence:    o.Classification.Confidence,
		MaxConfidence: s.MaxConfidence,
		ScamDetected:  s.ScamDetected,
		FraudType:     s.FraudType,
		Branch:        string(o.Branch),
		NewItems:      o.NewItems,
		Violations:    len(o.Validation.Violations),
		FellBack:      o.FellBack,
		Ended:         s.Ended,
		TurnCount:     s.TurnCount(),
		Engagement:    s.EngagementDuration,
		Intelligence:  s.Intelligence.Clone(),
		Latency:       latency,
	}
	if n := len(s.Messages); n >= 2 {
		rec.Inbound, rec.Outbound = s.Messages[n-2], s.Messages[n-1]
	}
	return rec
}

// responder produces the persona reply for a turn.
type responder interface {
	Respond(in strategy.Input) strategy.Output
	Closing(recent *domain.ReplyHistory) string
}

// Engine owns the five turn components. It holds no session state and is
// safe for concurrent use across distinct sessions.
type Engine struct {
	classifier *classifier.Classifier
	extractor  *extractor.Extractor
	state      *state.Controller
	strategy   responder
	safety     *safety.Filter
	recent     int
	maxRunes   int
	now        func() time.Time
}

// NewEngine builds every component from t, drawing reply variation from rng.
func NewEngine(t config.Tuning, rng strategy.Rand) *Engine {
	return &Engine{
		classifier: classifier.New(t.Classifier),
		extractor:  extractor.New(t.Extractor),
		state:      state.New(t.State),
		strategy:   strategy.New(t.Strategy, rng),
		safety:     safety.New(t.Safety),
		recent:     t.Strategy.RecentReplies,
		maxRunes:   t.Input.MaxMessageRunes,
		now:        time.Now,
	}
}

// Turn applies one message to a copy of sess. On error sess is untouched and
// the outcome is empty.
func (e *Engine) Turn(sess *domain.Session, in Incoming) (out Outcome, err error) {
	if sess == nil {
		return Outcome{}, &InputError{Field: "sessionId", Reason: "required"}
	}
	if err := in.validate(e.maxRunes); err != nil {
		return Outcome{}, err
	}

	defer func() {
		if r := recover(); r != nil {
			out = Outcome{}
			err = fmt.Errorf("%w: turn for session %s panicked: %v", ErrInternal, sess.ID, r)
		}
	}()

	out, err = e.turn(sess.Clone(), in)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return out, nil
}

func (e *Engine) turn(s *domain.Session, in Incoming) (Outcome, error) {
	now := e.now()
	ts := in.Timestamp
	if ts.IsZero() {
		ts = now
	}
	sender := in.Sender
	if sender == "" {
		sender = domain.SenderCounterpart
	}
	if s.RecentReplies.Limit != e.recent && e.recent > 0 {
		s.RecentReplies.Limit = e.recent
	}

	prior := s.CounterpartTexts()
	inbound := s.Record(sender, in.Text, ts)
	s.MergeHistory(clipHistory(in.History, e.maxRunes))

	out := Outcome{Session: s}
	out.Classification = e.classifier.Classify(in.Text, prior, in.Hint)
	cls := out.Classification
	s.ScamDetected = s.ScamDetected || cls.IsScam
	s.RaiseConfidence(cls.Confidence)
	if s.FraudType == domain.FraudNone {
		s.FraudType = cls.FraudType
	}

	out.Extraction = e.extractor.Extract(in.Text, inbound.Turn-1)
	for _, it := range out.Extraction.Items {
		if s.Intelligence.Merge(it) {
			out.NewItems++
		}
	}
	for _, re := range catalog.SuspiciousKeywordPatterns {
		if m := re.FindString(in.Text); m != "" {
			s.Intelligence.AddKeyword(m)
		}
	}

	var reply string
	justEnded := false
	if s.Ended {
		// Late messages to a closed session get a parting reply only.
		out.Transition = domain.TransitionResult{Next: s.Phase, ShouldEnd: true}
		out.Branch, reply = strategy.BranchClosing, e.strategy.Closing(&s.RecentReplies)
	} else {
		tr, err := e.state.Apply(s, state.Signals{
			MaxConfidence:       s.MaxConfidence,
			TurnCount:           s.TurnCount(),
			HasFinancialContext: cls.HasFinancialContext,
			HasDirectRequest:    cls.HasDirectRequest,
			ExtractionProgress:  state.ExtractionProgress(s.Intelligence),
			ConsecutiveDelays:   s.ConsecutiveDelays,
			Terminate:           in.Terminate,
		})
		if err != nil {
			return Outcome{}, err
		}
		out.Transition = tr
		if tr.ShouldEnd {
			justEnded = true
			out.Branch, reply = strategy.BranchClosing, e.strategy.Closing(&s.RecentReplies)
		} else {
			r := e.strategy.Respond(strategy.Input{
				Text:           in.Text,
				Turn:           len(prior) + 1,
				Phase:          s.Phase,
				Classification: cls,
				Extraction:     out.Extraction,
				FraudType:      s.FraudType,
				Flagged:        s.ScamDetected,
				MaxConfidence:  s.MaxConfidence,
				Known:          s.Intelligence,
				Persona:        &s.Persona,
				Recent:         &s.RecentReplies,
			})
			out.Branch, reply = r.Branch, r.Reply
		}
	}

	out.Validation = e.safety.Validate(reply, s.Phase)
	if out.Validation.Valid {
		reply = out.Validation.Cleaned
		s.ConsecutiveFallbacks = 0
	} else {
		exhausted := e.safety.Exhausted(s.ConsecutiveFallbacks)
		reply = e.safety.Fallback(s.Phase, s.ConsecutiveFallbacks)
		s.ConsecutiveFallbacks++
		out.FellBack = true
		out.Branch = strategy.BranchFallback
		if exhausted && !s.Ended {
			s.PreviousPhase, s.Phase = s.Phase, domain.PhaseClosing
			s.Ended = true
			justEnded = true
		}
	}
	out.Reply = reply

	s.Record(domain.SenderPersona, reply, now)
	if catalog.MatchAny(catalog.StallingPatterns, reply) {
		s.ConsecutiveDelays++
	} else {
		s.ConsecutiveDelays = 0
	}
	s.LastActivity = now
	if d := now.Sub(s.CreatedAt); d > s.EngagementDuration {
		s.EngagementDuration = d
	}

	if justEnded {
		r := report.Build(s)
		out.Report = &r
	}
	return out, nil
}
