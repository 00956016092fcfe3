package fmindex

import "sort"

// Range is a half-open interval [Left, Right) of suffix-array rows.
type Range struct {
	Left  int
	Right int
}

// Len is the number of rows, i.e. occurrences, in the range.
func (r Range) Len() int {
	return r.Right - r.Left
}

// Offsets returns the text offsets of the rows in the range, ascending.
func (r Range) Offsets(sa []int) []int {
	out := make([]int, r.Len())
	copy(out, sa[r.Left:r.Right])
	sort.Ints(out)
	return out
}

// First returns the offset of the first row, for callers that only need one
// hit.
func (r Range) First(sa []int) (int, bool) {
	if r.Len() <= 0 {
		return 0, false
	}
	return sa[r.Left], true
}

// Index is a read-only FM-index over one text.
type Index struct {
	bwt []rune
	sa  []int
	occ OccurrenceTable
	c   map[rune]int
}

// New wraps the three structures built from the same text.
func New(bwt []rune, sa []int, occ OccurrenceTable) *Index {
	return &Index{bwt: bwt, sa: sa, occ: occ, c: occ.FirstColumn()}
}

// SuffixArray returns the underlying suffix array.
func (x *Index) SuffixArray() []int {
	return x.sa
}

// Search runs backward search for query, returning the suffix-array range
// of suffixes prefixed by query. ok is false when query does not occur.
func (x *Index) Search(query string) (r Range, ok bool) {
	if len(x.sa) != len(x.bwt) {
		return Range{}, false
	}
	left, right := 0, len(x.sa)
	q := []rune(query)
	for i := len(q) - 1; i >= 0; i-- {
		c := q[i]
		counts, present := x.occ[c]
		if !present {
			return Range{}, false
		}
		left = x.c[c] + counts[left]
		right = x.c[c] + counts[right]
		if left >= right {
			return Range{}, false
		}
	}
	return Range{Left: left, Right: right}, true
}

// Count returns how many times query occurs in the text.
func (x *Index) Count(query string) int {
	r, ok := x.Search(query)
	if !ok {
		return 0
	}
	return r.Len()
}

// Locate returns the ascending text offsets where query occurs.
func (x *Index) Locate(query string) []int {
	r, ok := x.Search(query)
	if !ok {
		return nil
	}
	return r.Offsets(x.sa)
}

// BackwardSearch is Index.Search without keeping the index around.
func BackwardSearch(bwt []rune, sa []int, occ OccurrenceTable, query string) (Range, bool) {
	return New(bwt, sa, occ).Search(query)
}
