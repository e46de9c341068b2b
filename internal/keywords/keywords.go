// Package keywords derives the searchable token index stored with each report.
package keywords

import (
	"strings"
	"unicode/utf8"
)

// MinTokenLength is the shortest token kept in the index, in runes.
const MinTokenLength = 3

// Generate returns the lowercase tokens and adjacent-token bigrams of text.
// Tokens shorter than MinTokenLength are dropped before bigrams are formed,
// so a bigram never spans a dropped word. The result has no duplicates and
// keeps first-occurrence order.
func Generate(text string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(w) >= MinTokenLength {
			words = append(words, w)
		}
	}

	seen := make(map[string]struct{}, len(words)*2)
	out := make([]string, 0, len(words)*2)
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}

	for _, w := range words {
		add(w)
	}
	for i := 0; i+1 < len(words); i++ {
		add(words[i] + " " + words[i+1])
	}
	return out
}

// Probe normalizes search input into the value matched against the index:
// lowercase, trimmed, whitespace runs collapsed to a single space.
func Probe(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
