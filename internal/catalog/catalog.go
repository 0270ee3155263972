// Package catalog holds the immutable signal tables shared by the pipeline:
// weighted category patterns, risk keyword lists, entity patterns and
// forbidden reply content.
//
// Every table is compiled once at package init. All patterns are RE2, so
// matching time is linear in the input regardless of what the counterpart sends.
package catalog

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Phrase is a named pattern with no weight of its own.
type Phrase struct {
	ID string
	Re *regexp.Regexp
}

// Keyword is a risk keyword. Short keywords only match as whole words.
type Keyword struct {
	Text string
	re   *regexp.Regexp
}

// Match reports whether the keyword occurs in lower, which must be lower-cased.
func (k Keyword) Match(lower string) bool {
	if k.re != nil {
		return k.re.MatchString(lower)
	}
	return strings.Contains(lower, k.Text)
}

func keywords(words ...string) []Keyword {
	out := make([]Keyword, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		k := Keyword{Text: w}
		if len(w) <= 3 {
			k.re = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
		}
		out = append(out, k)
	}
	return out
}

func phrases(pairs ...string) []Phrase {
	out := make([]Phrase, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Phrase{ID: pairs[i], Re: regexp.MustCompile(pairs[i+1])})
	}
	return out
}

// MatchAny reports whether any phrase matches text.
func MatchAny(ps []Phrase, text string) bool {
	for _, p := range ps {
		if p.Re.MatchString(text) {
			return true
		}
	}
	return false
}

// Normalize folds compatibility characters (full-width digits, ligatures) to
// their canonical forms and strips invisible format characters.
func Normalize(text string) string {
	// Chained transformers carry state, so each call builds its own.
	t := transform.Chain(norm.NFKC, runes.Remove(runes.In(unicode.Cf)))
	out, _, err := transform.String(t, text)
	if err != nil {
		return norm.NFKC.String(text)
	}
	return out
}
