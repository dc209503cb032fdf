// Package normalize canonicalizes free-text item names so records entered
// independently by different actors (contract items, deliveries, warehouse
// movements) can be matched against each other.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Key returns the canonical form of an item name: lower-cased, diacritics
// stripped, everything that is not an ASCII letter or digit removed.
func Key(name string) string {
	folded, _, err := transform.String(stripAccents, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Matcher decides whether two normalized keys refer to the same item.
//
// The substring heuristic tolerates partial names ("BANANA" entered on a
// movement slip matching the contracted "BANANA NANICA") at the cost of
// over-merging distinct products that share a word. It is kept configurable
// so an alias table can replace it without touching the rest of the ledger.
type Matcher struct {
	Substring bool
}

// NewMatcher returns a matcher with the substring heuristic enabled.
func NewMatcher() *Matcher {
	return &Matcher{Substring: true}
}

// Match reports whether two already-normalized keys identify the same item.
func (m *Matcher) Match(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if !m.Substring {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// MatchNames normalizes both names before matching.
func (m *Matcher) MatchNames(a, b string) bool {
	return m.Match(Key(a), Key(b))
}
