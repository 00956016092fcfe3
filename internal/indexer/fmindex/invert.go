package fmindex

import "errors"

// Invert reconstructs the text from its BWT, suffix array and occurrence
// table by walking the LF mapping backwards from the row of suffix 0.
func Invert(bwt []rune, sa []int, occ OccurrenceTable) ([]rune, error) {
	n := len(bwt)
	if len(sa) != n {
		return nil, errors.New("fmindex: bwt and suffix array lengths differ")
	}
	if n == 0 {
		return []rune{}, nil
	}
	row := -1
	for i, off := range sa {
		if off == 0 {
			row = i
			break
		}
	}
	if row < 0 {
		return nil, errors.New("fmindex: suffix array has no row for offset 0")
	}
	c := occ.FirstColumn()
	text := make([]rune, n)
	for j := n - 1; j >= 0; j-- {
		r := bwt[row]
		counts, ok := occ[r]
		if !ok {
			return nil, errors.New("fmindex: occurrence table is missing a bwt rune")
		}
		text[j] = r
		row = c[r] + counts[row]
	}
	return text, nil
}
