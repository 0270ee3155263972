// Package extractor harvests structured intelligence from counterpart messages.
package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ashureev/honeytrap/internal/catalog"
	"github.com/ashureev/honeytrap/internal/config"
	"github.com/ashureev/honeytrap/internal/domain"
)

const (
	methodRegex     = "regex"
	methodValidated = "regex_validated"
	methodPattern   = "pattern"
)

// Extractor applies the catalog entity patterns to one message at a time.
// It holds no per-session state and is safe for concurrent use.
type Extractor struct {
	cfg config.ExtractorTuning
}

// New creates an extractor with the given tuning.
func New(cfg config.ExtractorTuning) *Extractor {
	return &Extractor{cfg: cfg}
}

// Normalize returns the canonical dedup key for value. It is idempotent.
func Normalize(t domain.EntityType, value string) string {
	return domain.NormalizeValue(t, value)
}

type key struct {
	t domain.EntityType
	v string
}

// collector deduplicates items by (type, normalized value) keeping the
// highest confidence, in first-seen order.
type collector struct {
	items []domain.ExtractionItem
	index map[key]int
}

func (c *collector) add(it domain.ExtractionItem) {
	k := key{it.Type, it.Normalized}
	if i, ok := c.index[k]; ok {
		if it.Confidence > c.items[i].Confidence {
			c.items[i] = it
		}
		return
	}
	c.index[k] = len(c.items)
	c.items = append(c.items, it)
}

// Extract scans text for intelligence. priorTurns is the number of messages
// exchanged before this one and sets each item's originating turn.
func (e *Extractor) Extract(text string, priorTurns int) domain.ExtractionResult {
	msg := catalog.Normalize(text)
	lower := strings.ToLower(msg)
	turn := priorTurns + 1

	c := &collector{index: make(map[key]int)}
	for _, p := range catalog.EntityPatterns {
		hits := keywordHits(lower, p.RequiredKeywords)
		if len(p.RequiredKeywords) > 0 && hits == 0 {
			continue
		}
		for _, loc := range p.Re.FindAllStringIndex(msg, -1) {
			raw := msg[loc[0]:loc[1]]
			if p.Validate != nil && !p.Validate(raw, lower) {
				continue
			}
			method := methodRegex
			if p.Validate != nil {
				method = methodValidated
			}
			c.add(domain.ExtractionItem{
				Type:       p.Type,
				Raw:        raw,
				Value:      domain.CleanValue(p.Type, raw),
				Normalized: Normalize(p.Type, raw),
				Confidence: e.confidence(p.BaseConfidence, hits),
				Validated:  true,
				Turn:       turn,
				Snippet:    snippet(msg, loc[0], loc[1], e.cfg.SnippetWindow),
				Method:     method,
			})
		}
	}

	e.captures(c, msg, catalog.NamePatterns, domain.EntityName, e.cfg.NameConfidence, 2, 50, turn)
	e.captures(c, msg, catalog.OrganizationPatterns, domain.EntityOrganization, e.cfg.OrgConfidence, 3, 100, turn)

	return domain.ExtractionResult{
		Items:   c.items,
		Targets: targets(msg),
		Context: analyzeContext(msg),
	}
}

func (e *Extractor) captures(c *collector, msg string, patterns []*regexp.Regexp, t domain.EntityType, conf float64, minLen, maxLen, turn int) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatchIndex(msg, -1) {
			if len(m) < 4 || m[2] < 0 {
				continue
			}
			v := strings.TrimSpace(msg[m[2]:m[3]])
			if n := utf8.RuneCountInString(v); n < minLen || n > maxLen {
				continue
			}
			if t == domain.EntityName && catalog.NameStoplist[v] {
				continue
			}
			c.add(domain.ExtractionItem{
				Type:       t,
				Raw:        msg[m[0]:m[1]],
				Value:      v,
				Normalized: Normalize(t, v),
				Confidence: conf,
				Validated:  true,
				Turn:       turn,
				Snippet:    snippet(msg, m[0], m[1], e.cfg.SnippetWindow),
				Method:     methodPattern,
			})
		}
	}
}

func (e *Extractor) confidence(base float64, hits int) float64 {
	c := base
	if hits >= 2 {
		c += e.cfg.ContextBoost
	}
	if hits >= 3 {
		c += e.cfg.MultiContextBoost
	}
	if c > 1 {
		return 1
	}
	return c
}

func keywordHits(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}

// snippet returns msg[start:end] widened by window bytes on each side,
// aligned to rune boundaries and marked with "..." where cut.
func snippet(msg string, start, end, window int) string {
	from := start - window
	if from < 0 {
		from = 0
	}
	to := end + window
	if to > len(msg) {
		to = len(msg)
	}
	for from > 0 && !utf8.RuneStart(msg[from]) {
		from--
	}
	for to < len(msg) && !utf8.RuneStart(msg[to]) {
		to++
	}
	s := msg[from:to]
	if from > 0 {
		s = "..." + s
	}
	if to < len(msg) {
		s += "..."
	}
	return s
}

func targets(msg string) []domain.EntityType {
	var out []domain.EntityType
	seen := make(map[domain.EntityType]bool)
	for _, t := range catalog.Targets {
		if !t.Re.MatchString(msg) {
			continue
		}
		for _, et := range t.Types {
			if !seen[et] {
				seen[et] = true
				out = append(out, et)
			}
		}
	}
	return out
}

func analyzeContext(msg string) domain.MessageContext {
	return domain.MessageContext{
		PaymentLanguage:     catalog.PaymentLanguage.MatchString(msg),
		ContactRequest:      catalog.ContactRequest.MatchString(msg),
		Link:                catalog.LinkMention.MatchString(msg),
		NameReference:       catalog.NameReference.MatchString(msg),
		Organization:        catalog.OrganizationMention.MatchString(msg),
		CredentialRequest:   catalog.CredentialRequest.MatchString(msg),
		VerificationRequest: catalog.VerificationRequest.MatchString(msg),
	}
}
