package safety

import (
	"math/rand/v2"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/honeytrap/internal/catalog"
	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
)

func newFilter() *Filter {
	return New(config.DefaultTuning().Safety)
}

func ids(vs []domain.Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.PatternID)
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		valid   bool
		ids     []string
		cleaned string
	}{
		{
			name:  "clean",
			reply: "Okay, which branch are you calling from? I want to note it down.",
			valid: true, ids: []string{},
			cleaned: "Okay, which branch are you calling from? I want to note it down.",
		},
		{
			name:  "accusation blocks",
			reply: "I know you're a scammer, stop messaging me please.",
			valid: false, ids: []string{"accusation.label", "accusation.direct"},
		},
		{
			name:  "enforcement blocks",
			reply: "I will go to the police with all these messages now.",
			valid: false, ids: []string{"legal.enforcement"},
		},
		{
			name:  "revealing blocks",
			reply: "As an AI, I cannot share any banking details with you.",
			valid: false, ids: []string{"reveal.as_an_ai", "reveal.cannot"},
		},
		{
			name:  "judgement replaced",
			reply: "This feels like a scam to me, can you explain it once more?",
			valid: true, ids: []string{"judgement.scam"},
			cleaned: "This feels like a concerned to me, can you explain it once more?",
		},
		{
			name:  "legal terms replaced",
			reply: "My lawyer friend said to ask for your branch address first.",
			valid: true, ids: []string{"legal.terms"},
			cleaned: "My office friend said to ask for your branch address first.",
		},
		{
			name:  "medium is recorded only",
			reply: "Should I verify your number with the bank helpline first?",
			valid: true, ids: []string{"probe.verify"},
			cleaned: "Should I verify your number with the bank helpline first?",
		},
	}
	f := newFilter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Validate(tt.reply, domain.PhaseRequest)
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.ids, ids(got.Violations))
			if tt.cleaned != "" {
				assert.Equal(t, tt.cleaned, got.Cleaned)
				assert.True(t, got.LengthValid)
			}
			for _, v := range got.Violations {
				assert.NotEmpty(t, v.Matched)
			}
		})
	}
}

func TestValidateFitsLength(t *testing.T) {
	f := newFilter()

	short := f.Validate("Okay.", domain.PhaseFinancialContext)
	assert.True(t, short.Valid)
	assert.False(t, short.LengthValid)
	assert.GreaterOrEqual(t, utf8.RuneCountInString(short.Cleaned), 40)
	assert.True(t, strings.HasPrefix(short.Cleaned, "Okay."))

	long := strings.Repeat("Tell me more about the process please. ", 20)
	got := f.Validate(long, domain.PhaseSuspicious)
	assert.False(t, got.LengthValid)
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Cleaned), 120)
	assert.True(t, strings.HasSuffix(got.Cleaned, "..."))
	assert.NotContains(t, got.Cleaned, "....")
}

func TestFitPropertyWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	words := []string{"okay", "sir", "बैंक", "UPI", "wait!", "what?", "hmm.", "अच्छा", "transfer", "😊", "  "}
	bounds := []config.LengthBounds{{Min: 20, Max: 100}, {Min: 40, Max: 180}, {Min: 25, Max: 250}, {Min: 50, Max: 52}, {Min: 5, Max: 5}}
	for _, b := range config.DefaultTuning().Safety.Lengths {
		bounds = append(bounds, b)
	}

	for i := 0; i < 3000; i++ {
		var sb strings.Builder
		for n := rng.IntN(80); n > 0; n-- {
			sb.WriteString(words[rng.IntN(len(words))])
			if rng.IntN(3) > 0 {
				sb.WriteByte(' ')
			}
		}
		b := bounds[rng.IntN(len(bounds))]
		got := Fit(sb.String(), b)
		n := utf8.RuneCountInString(got)
		require.True(t, n >= b.Min && n <= b.Max, "len %d outside %+v for %q", n, b, got)
		require.True(t, utf8.ValidString(got))
	}
}

func TestFallbackRotationAndTerminal(t *testing.T) {
	f := newFilter()
	seen := map[string]bool{}
	for c := 0; c < 3; c++ {
		r := f.Fallback(domain.PhaseExtraction, c)
		assert.NotEqual(t, Terminal, r)
		seen[r] = true
	}
	assert.Len(t, seen, 3)

	for _, p := range domain.Phases {
		assert.Equal(t, Terminal, f.Fallback(p, 3), p)
		assert.Equal(t, Terminal, f.Fallback(p, 7), p)
	}
}

func TestFallbacksAreCleanAndFit(t *testing.T) {
	f := newFilter()
	for _, p := range domain.Phases {
		for c := -1; c <= 4; c++ {
			r := f.Fallback(p, c)
			got := f.Validate(r, p)
			require.True(t, got.Valid, "%s/%d: %v", p, c, got.Violations)
			require.True(t, got.LengthValid, "%s/%d: %q", p, c, r)
			require.Equal(t, r, got.Cleaned)
		}
	}
	for _, clause := range padding {
		assert.False(t, catalog.MatchAny(catalog.RevealingPatterns, clause))
	}
}

func TestFourBlockedRepliesEndWithApology(t *testing.T) {
	f := newFilter()
	consecutive := 0
	var sent []string
	for i := 0; i < 4; i++ {
		res := f.Validate("You're a fraud and I will report you.", domain.PhaseRequest)
		require.False(t, res.Valid)
		sent = append(sent, f.Fallback(domain.PhaseRequest, consecutive))
		consecutive++
	}
	assert.Equal(t, Terminal, sent[3])
	for _, s := range sent[:3] {
		assert.NotEqual(t, Terminal, s)
	}
}

func TestUnknownPhaseUsesDefaultEnvelope(t *testing.T) {
	got := newFilter().Validate("Hi", domain.Phase("NOPE"))
	n := utf8.RuneCountInString(got.Cleaned)
	assert.GreaterOrEqual(t, n, 30)
	assert.LessOrEqual(t, n, 150)
}
