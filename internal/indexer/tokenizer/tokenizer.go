// Package tokenizer turns document text into the set of normalized tokens
// stored with each index entry. Words are found on Unicode (UAX #29) word
// boundaries, NFKC-normalized, lower-cased, and dropped when they are stop
// words of the configured language. Only presence is kept: no frequencies
// and no positions.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
)

// Tokenizer is safe for concurrent use.
type Tokenizer struct {
	lang  Language
	stops StopSet
}

// New resolves the stop words of lang from dict once.
func New(dict Dictionary, lang Language) *Tokenizer {
	stops := StopSet{}
	if dict != nil {
		if s := dict.Stopwords(lang); s != nil {
			stops = s
		}
	}
	return &Tokenizer{lang: lang, stops: stops}
}

func (t *Tokenizer) Language() Language {
	return t.lang
}

// Tokenize returns the distinct non-stop-word tokens of text. Empty or
// word-less input yields an empty set.
func (t *Tokenizer) Tokenize(text string) index.TokenSet {
	var found []string
	segments := words.FromString(text)
	for segments.Next() {
		seg := segments.Value()
		if !isWord(seg) {
			continue
		}
		w := Normalize(seg)
		if t.stops.Contains(w) {
			continue
		}
		found = append(found, w)
	}
	return index.NewTokenSet(found...)
}

// Normalize applies NFKC and lower-casing, the same folding Tokenize applies
// to every word. Queries should pass through it before exact search.
func Normalize(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}

// isWord reports whether a segment carries a letter or digit; UAX #29 also
// yields whitespace and punctuation segments.
func isWord(seg string) bool {
	for _, r := range seg {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
