// Package safety screens outgoing replies before they reach the counterpart.
package safety

import (
	"strings"
	"unicode/utf8"

	"github.com/ashureev/honeytrap/internal/catalog"
	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
)

// Terminal is the parting reply once fallbacks are exhausted.
const Terminal = "I'm really sorry but I have to go now. Emergency situation. Hope we can talk again soon!"

var fallbacks = []string{
	"Hey sorry about that! Work got chaotic for a moment. What were we discussing? I want to make sure I didn't miss anything important.",
	"I apologize if I seem distracted! My day has been incredibly hectic. I am genuinely interested in what you're saying. Can you please continue?",
	"OK I think I've been overthinking this. I'm actually quite interested in this opportunity. Can you tell me what the next steps would be?",
	"I'm really sorry, I got completely distracted! Work has been crazy today. Can you remind me what we were talking about?",
}

var padding = []string{
	" Let me know what you think!",
	" What do you think about that?",
	" I'm curious to hear more.",
	" That sounds interesting to me.",
	" How does that work exactly?",
}

const ellipsis = "..."

// Filter validates replies against the forbidden catalog and the per-phase
// length envelope. It holds no mutable state.
type Filter struct {
	cfg config.SafetyTuning
}

// New creates a filter.
func New(cfg config.SafetyTuning) *Filter {
	return &Filter{cfg: cfg}
}

// Validate checks reply for the given phase. A result with Valid false must
// not be sent; the caller substitutes Fallback. Cleaned always fits the
// phase envelope.
func (f *Filter) Validate(reply string, phase domain.Phase) domain.ValidationResult {
	res := domain.ValidationResult{Valid: true, Violations: []domain.Violation{}}
	cleaned := reply

	for _, p := range catalog.ForbiddenPatterns {
		m := p.Re.FindString(cleaned)
		if m == "" {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			PatternID: p.ID, Severity: p.Severity, Matched: m, Action: p.Action,
		})
		switch p.Action {
		case domain.ActionBlock:
			res.Valid = false
		case domain.ActionReplace:
			cleaned = p.Re.ReplaceAllLiteralString(cleaned, p.Replacement)
		}
	}
	for _, p := range catalog.RevealingPatterns {
		if m := p.Re.FindString(cleaned); m != "" {
			res.Violations = append(res.Violations, domain.Violation{
				PatternID: p.ID, Severity: domain.SeverityCritical, Matched: m, Action: domain.ActionBlock,
			})
			res.Valid = false
		}
	}

	b := f.cfg.Bounds(phase)
	res.LengthValid = within(cleaned, b)
	res.Cleaned = Fit(cleaned, b)
	return res
}

// Fallback returns a clean replacement for a blocked reply. consecutive is
// the number of fallbacks already sent in a row; at the configured bound
// the terminal apology is returned for every phase.
func (f *Filter) Fallback(phase domain.Phase, consecutive int) string {
	if f.Exhausted(consecutive) {
		return Fit(Terminal, f.cfg.Bounds(phase))
	}
	if consecutive < 0 {
		consecutive = 0
	}
	return Fit(fallbacks[consecutive%len(fallbacks)], f.cfg.Bounds(phase))
}

// Exhausted reports whether consecutive prior fallbacks reach the bound.
func (f *Filter) Exhausted(consecutive int) bool {
	return consecutive >= f.cfg.MaxConsecutive
}

// Fit pads or truncates s into b, counting runes.
func Fit(s string, b config.LengthBounds) string {
	s = strings.TrimSpace(s)
	if within(s, b) {
		return s
	}
	if utf8.RuneCountInString(s) < b.Min {
		s = pad(s, b.Min)
	}
	if utf8.RuneCountInString(s) > b.Max {
		s = truncate(s, b.Max)
	}
	if utf8.RuneCountInString(s) < b.Min {
		s = pad(s, b.Min)
	}
	if !within(s, b) {
		s = exact(s, b)
	}
	return s
}

// exact forces s into b rune by rune. Only narrow envelopes get here.
func exact(s string, b config.LengthBounds) string {
	runes := []rune(s)
	if len(runes) > b.Max {
		runes = runes[:b.Max]
	}
	filler := []rune(" Okay?")
	for i := 0; len(runes) < b.Min; i++ {
		runes = append(runes, filler[i%len(filler)])
	}
	return string(runes)
}

func within(s string, b config.LengthBounds) bool {
	n := utf8.RuneCountInString(s)
	return n >= b.Min && n <= b.Max
}

// pad appends distinct clauses until s reaches min. The starting clause
// rotates with the input so short replies do not all end the same way.
func pad(s string, min int) string {
	start := utf8.RuneCountInString(s) % len(padding)
	for i := 0; i < len(padding) && utf8.RuneCountInString(s) < min; i++ {
		clause := padding[(start+i)%len(padding)]
		if strings.Contains(s, strings.TrimSpace(clause)) {
			continue
		}
		s += clause
	}
	for utf8.RuneCountInString(s) < min {
		s += " Okay?"
	}
	return s
}

// truncate cuts s at the last sentence end that leaves room for an
// ellipsis within max, or hard-cuts when there is none.
func truncate(s string, max int) string {
	limit := max - len(ellipsis)
	if limit <= 0 {
		return hardCut(s, max)
	}
	runes := []rune(s)
	cut := -1
	for i := 0; i < len(runes) && i < limit; i++ {
		switch runes[i] {
		case '.', '!', '?':
			cut = i
		}
	}
	if cut <= 0 {
		return hardCut(s, max)
	}
	head := strings.TrimRight(string(runes[:cut+1]), ".!? ")
	if head == "" {
		return hardCut(s, max)
	}
	return head + ellipsis
}

// hardCut keeps as many whole words as fit before an ellipsis.
func hardCut(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	limit := max - len(ellipsis)
	if limit <= 0 {
		return string(runes[:max])
	}
	head := string(runes[:limit])
	if i := strings.LastIndexByte(head, ' '); i > limit/2 {
		head = head[:i]
	}
	return strings.TrimRight(head, " .,!?") + ellipsis
}
