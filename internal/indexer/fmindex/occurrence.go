package fmindex

import "sort"

// OccurrenceTable maps each rune present in a BWT to its cumulative counts:
// table[c][i] is the number of c in bwt[0:i], so every slice has length N+1.
// Runes absent from the BWT have no slice.
type OccurrenceTable map[rune][]int

// ComputeOccurrences builds the occurrence table of bwt.
func ComputeOccurrences(bwt []rune) OccurrenceTable {
	n := len(bwt)
	table := make(OccurrenceTable)
	for _, r := range bwt {
		if _, ok := table[r]; !ok {
			table[r] = make([]int, n+1)
		}
	}
	type column struct {
		r      rune
		counts []int
	}
	cols := make([]column, 0, len(table))
	for r, counts := range table {
		cols = append(cols, column{r, counts})
	}
	for i, r := range bwt {
		for _, col := range cols {
			col.counts[i+1] = col.counts[i]
			if col.r == r {
				col.counts[i+1]++
			}
		}
	}
	return table
}

// Rank returns the number of c in bwt[0:i], or 0 when c never occurs.
func (t OccurrenceTable) Rank(c rune, i int) int {
	counts, ok := t[c]
	if !ok {
		return 0
	}
	return counts[i]
}

// Total returns the number of c in the whole BWT.
func (t OccurrenceTable) Total(c rune) int {
	counts, ok := t[c]
	if !ok || len(counts) == 0 {
		return 0
	}
	return counts[len(counts)-1]
}

// Runes returns the runes present, ascending.
func (t OccurrenceTable) Runes() []rune {
	runes := make([]rune, 0, len(t))
	for r := range t {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return runes
}

// FirstColumn returns C, where C[c] counts the runes of the BWT strictly
// smaller than c. C[c] is the first row of the sorted matrix starting with c.
func (t OccurrenceTable) FirstColumn() map[rune]int {
	c := make(map[rune]int, len(t))
	sum := 0
	for _, r := range t.Runes() {
		c[r] = sum
		sum += t.Total(r)
	}
	return c
}
