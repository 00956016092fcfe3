package tokenizer

import (
	"fmt"
	"strings"
)

// Language identifies a stop-word list.
type Language string

const English Language = "en"

// ParseLanguage accepts a language code or English name, case-insensitively.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "eng", "english":
		return English, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// StopSet is a set of lower-cased stop words.
type StopSet map[string]struct{}

// NewStopSet builds a StopSet from words, lower-casing each.
func NewStopSet(words ...string) StopSet {
	set := make(StopSet, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

func (s StopSet) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// Dictionary supplies the stop words of a language. Implementations return
// an empty set for languages they do not know.
type Dictionary interface {
	Stopwords(lang Language) StopSet
}

// StaticDictionary is a Dictionary backed by a fixed map.
type StaticDictionary map[Language]StopSet

func (d StaticDictionary) Stopwords(lang Language) StopSet {
	if set, ok := d[lang]; ok {
		return set
	}
	return StopSet{}
}

// BuiltinDictionary returns the dictionary shipped with hunt.
func BuiltinDictionary() Dictionary {
	return StaticDictionary{
		English: NewStopSet(englishStopwords...),
	}
}

var englishStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "am", "an",
	"and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "could", "did",
	"do", "does", "doing", "down", "during", "each", "few", "for", "from",
	"further", "had", "has", "have", "having", "he", "her", "here", "hers",
	"herself", "him", "himself", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "itself", "just", "me", "more", "most", "my", "myself", "no",
	"nor", "not", "now", "of", "off", "on", "once", "only", "or", "other",
	"our", "ours", "ourselves", "out", "over", "own", "same", "she", "should",
	"so", "some", "such", "than", "that", "the", "their", "theirs", "them",
	"themselves", "then", "there", "these", "they", "this", "those",
	"through", "to", "too", "under", "until", "up", "very", "was", "we",
	"were", "what", "when", "where", "which", "while", "who", "whom", "why",
	"will", "with", "would", "you", "your", "yours", "yourself",
	"yourselves",
}
