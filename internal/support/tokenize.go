// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package support

import (
	"strings"
	"unicode"

	"github.com/bbalet/stopwords"
)

// Tokenizer normalizes passage text for term-level feature counting:
// lowercase, punctuation stripped, whitespace-split, stop words removed.
// The same tokenizer must be used to build a term distribution and to score
// passages against it, or term keys will not line up.
type Tokenizer struct {
	lang  string
	extra map[string]struct{}
}

// NewTokenizer creates a Tokenizer for the given stop-word language code
// (e.g. "en"). Extra words are removed in addition to the language list.
func NewTokenizer(lang string, extra []string) *Tokenizer {
	if lang == "" {
		lang = "en"
	}
	t := &Tokenizer{lang: lang, extra: make(map[string]struct{}, len(extra))}
	for _, w := range extra {
		t.extra[strings.ToLower(w)] = struct{}{}
	}
	return t
}

// Tokenize splits text into normalized tokens with stop words removed.
// Every surviving occurrence is returned, duplicates included.
func (t *Tokenizer) Tokenize(text string) []string {
	cleaned := stopwords.CleanString(text, t.lang, false)
	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, drop := t.extra[f]; drop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// NormalizeTerms lowercases text, strips punctuation, and splits on
// whitespace without removing stop words. This matches what the index's
// standard analyzer produces for indexed terms, so the output is usable
// directly as query terms.
func NormalizeTerms(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}
