// Package index holds the persisted per-document record and the collection
// of records that is saved, loaded and searched as one unit.
package index

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/fmindex"
)

// IndexEntry is everything kept about one document. BWT and SuffixArray are
// measured in runes of the sentinel-terminated text.
type IndexEntry struct {
	Filename    string
	BWT         []rune
	SuffixArray []int
	Occurrences fmindex.OccurrenceTable
	Tokens      TokenSet
}

// Len is the length N of the indexed text.
func (e *IndexEntry) Len() int {
	return len(e.BWT)
}

// Locator is the first suffix-array offset, used as a cheap existence
// pointer by exact search. It is 0 for an empty entry.
func (e *IndexEntry) Locator() int {
	if len(e.SuffixArray) == 0 {
		return 0
	}
	return e.SuffixArray[0]
}

// FM returns the searchable FM-index view of the entry.
func (e *IndexEntry) FM() *fmindex.Index {
	return fmindex.New(e.BWT, e.SuffixArray, e.Occurrences)
}

// Validate checks the structural invariants of the entry: matching lengths,
// a suffix array that is a permutation, and an occurrence table that counts
// exactly the runes of the BWT.
func (e *IndexEntry) Validate() error {
	n := len(e.BWT)
	if len(e.SuffixArray) != n {
		return fmt.Errorf("entry %q: suffix array length %d, bwt length %d", e.Filename, len(e.SuffixArray), n)
	}
	seen := make([]bool, n)
	for _, off := range e.SuffixArray {
		if off < 0 || off >= n || seen[off] {
			return fmt.Errorf("entry %q: suffix array is not a permutation of [0,%d)", e.Filename, n)
		}
		seen[off] = true
	}
	distinct := make(map[rune]struct{})
	for _, r := range e.BWT {
		distinct[r] = struct{}{}
	}
	if len(distinct) != len(e.Occurrences) {
		return fmt.Errorf("entry %q: occurrence table has %d runes, bwt has %d", e.Filename, len(e.Occurrences), len(distinct))
	}
	for r, counts := range e.Occurrences {
		if _, ok := distinct[r]; !ok {
			return fmt.Errorf("entry %q: occurrence table lists %q absent from bwt", e.Filename, r)
		}
		if len(counts) != n+1 {
			return fmt.Errorf("entry %q: occurrences of %q have length %d, want %d", e.Filename, r, len(counts), n+1)
		}
		if counts[0] != 0 {
			return fmt.Errorf("entry %q: occurrences of %q do not start at 0", e.Filename, r)
		}
		for i := 1; i <= n; i++ {
			want := counts[i-1]
			if e.BWT[i-1] == r {
				want++
			}
			if counts[i] != want {
				return fmt.Errorf("entry %q: occurrences of %q disagree with bwt at %d", e.Filename, r, i-1)
			}
		}
	}
	if !e.Tokens.Valid() {
		return fmt.Errorf("entry %q: tokens are not a sorted set", e.Filename)
	}
	return nil
}

// Collection is the ordered set of entries persisted and searched together.
// It is never mutated after it is built or decoded.
type Collection struct {
	Entries []IndexEntry
}

// NewCollection wraps entries, never storing a nil slice.
func NewCollection(entries []IndexEntry) Collection {
	if entries == nil {
		entries = []IndexEntry{}
	}
	return Collection{Entries: entries}
}

func (c Collection) Len() int {
	return len(c.Entries)
}

// Validate runs IndexEntry.Validate over every entry.
func (c Collection) Validate() error {
	for i := range c.Entries {
		if err := c.Entries[i].Validate(); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}
