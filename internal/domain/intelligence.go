package domain

import "strings"

// IntelItem is one deduplicated intelligence entry held by a session.
type IntelItem struct {
	Type       EntityType `json:"type"`
	Value      string     `json:"value"`
	Raw        string     `json:"raw"`
	Confidence float64    `json:"confidence"`
	FirstTurn  int        `json:"first_turn"`
	Snippet    string     `json:"snippet,omitempty"`
}

// Intelligence holds per-category collections keyed by (type, normalized value).
type Intelligence struct {
	Items              []IntelItem `json:"items"`
	SuspiciousKeywords []string    `json:"suspicious_keywords"`
}

// Merge adds an extraction item, keeping the highest confidence per key.
// It reports whether a new key was added.
func (in *Intelligence) Merge(it ExtractionItem) bool {
	value := NormalizeValue(it.Type, it.Normalized)
	if value == "" {
		return false
	}
	for i := range in.Items {
		if in.Items[i].Type == it.Type && in.Items[i].Value == value {
			if it.Confidence > in.Items[i].Confidence {
				in.Items[i].Confidence = clamp01(it.Confidence)
			}
			return false
		}
	}
	in.Items = append(in.Items, IntelItem{
		Type:       it.Type,
		Value:      value,
		Raw:        it.Value,
		Confidence: clamp01(it.Confidence),
		FirstTurn:  it.Turn,
		Snippet:    it.Snippet,
	})
	return true
}

// AddKeyword records a suspicious keyword once, lower-cased.
func (in *Intelligence) AddKeyword(k string) bool {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return false
	}
	for _, got := range in.SuspiciousKeywords {
		if got == k {
			return false
		}
	}
	in.SuspiciousKeywords = append(in.SuspiciousKeywords, k)
	return true
}

// Values returns the normalized values collected for t, in first-seen order.
func (in *Intelligence) Values(t EntityType) []string {
	out := []string{}
	for _, it := range in.Items {
		if it.Type == t {
			out = append(out, it.Value)
		}
	}
	return out
}

// Count returns how many entries of type t are held.
func (in *Intelligence) Count(t EntityType) int {
	n := 0
	for _, it := range in.Items {
		if it.Type == t {
			n++
		}
	}
	return n
}

// Has reports whether any entry of type t is held.
func (in *Intelligence) Has(t EntityType) bool {
	return in.Count(t) > 0
}

// Clone returns a deep copy.
func (in Intelligence) Clone() Intelligence {
	out := Intelligence{
		Items:              make([]IntelItem, len(in.Items)),
		SuspiciousKeywords: make([]string, len(in.SuspiciousKeywords)),
	}
	copy(out.Items, in.Items)
	copy(out.SuspiciousKeywords, in.SuspiciousKeywords)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
