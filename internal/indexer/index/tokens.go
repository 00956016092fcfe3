package index

import "sort"

// TokenSet is a set of normalized tokens kept sorted and free of duplicates.
// Ranging over it yields tokens in ascending order.
type TokenSet []string

// NewTokenSet builds a set from words, dropping duplicates. The result is
// never nil.
func NewTokenSet(words ...string) TokenSet {
	set := make(TokenSet, 0, len(words))
	set = append(set, words...)
	sort.Strings(set)
	out := set[:0]
	for i, w := range set {
		if i > 0 && w == set[i-1] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Contains reports whether token is in the set.
func (s TokenSet) Contains(token string) bool {
	i := sort.SearchStrings(s, token)
	return i < len(s) && s[i] == token
}

func (s TokenSet) Len() int {
	return len(s)
}

// Valid reports whether s is strictly ascending, i.e. a well-formed set.
func (s TokenSet) Valid() bool {
	for i := 1; i < len(s); i++ {
		if s[i-1] >= s[i] {
			return false
		}
	}
	return true
}
