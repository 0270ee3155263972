package catalog

import (
	"regexp"

	"github.com/ashureev/honeytrap/internal/domain"
)

// ForbiddenPattern is reply content the persona must never send as-is.
type ForbiddenPattern struct {
	ID          string
	Severity    domain.Severity
	Action      domain.Action
	Replacement string
	Re          *regexp.Regexp
}

// ForbiddenPatterns are checked against every outgoing reply.
var ForbiddenPatterns = []ForbiddenPattern{
	{ID: "accusation.label", Severity: domain.SeverityCritical, Action: domain.ActionBlock,
		Re: regexp.MustCompile(`(?i)\b(?:scammer|fraud|fake|con artist|thief)\b`)},
	{ID: "legal.enforcement", Severity: domain.SeverityCritical, Action: domain.ActionBlock,
		Re: regexp.MustCompile(`(?i)\b(?:police|investigation|arrest|jail|legal action|report)\b`)},
	{ID: "accusation.direct", Severity: domain.SeverityCritical, Action: domain.ActionBlock,
		Re: regexp.MustCompile(`(?i)\b(?:i know you're|i can tell|you're a|you scammed)\b`)},
	{ID: "reveal.automation", Severity: domain.SeverityCritical, Action: domain.ActionBlock,
		Re: regexp.MustCompile(`(?i)\b(?:i'm an ai|i'm a bot|i'm not human|ai model)\b`)},

	{ID: "judgement.scam", Severity: domain.SeverityHigh, Action: domain.ActionReplace, Replacement: "concerned",
		Re: regexp.MustCompile(`(?i)\b(?:scam|fraudulent|suspicious)\b`)},
	{ID: "legal.terms", Severity: domain.SeverityHigh, Action: domain.ActionReplace, Replacement: "office",
		Re: regexp.MustCompile(`(?i)\b(?:fbi|cia|court|lawyer|attorney)\b`)},

	{ID: "probe.verify", Severity: domain.SeverityMedium, Action: domain.ActionWarn,
		Re: regexp.MustCompile(`(?i)\b(?:verify|confirm|check)\s+(?:your|that)\b`)},
}

// RevealingPatterns betray an automated speaker. Every match blocks the reply.
var RevealingPatterns = phrases(
	"reveal.as_an_ai", `(?i)as an ai`,
	"reveal.designed", `(?i)i was designed`,
	"reveal.programming", `(?i)my programming`,
	"reveal.cannot", `(?i)i cannot`,
	"reveal.not_allowed", `(?i)i'm not allowed`,
	"reveal.system_prompt", `(?i)system prompt`,
)
