package fmindex

// BuildBWT returns the Burrows-Wheeler Transform of text under the suffix
// order of SuffixArray.
func BuildBWT(text []rune) []rune {
	return BWTFromSuffixArray(text, SuffixArray(text))
}

// BWTFromSuffixArray returns bwt[i] = text[(sa[i]-1) mod N]. sa must be the
// suffix array of text.
func BWTFromSuffixArray(text []rune, sa []int) []rune {
	n := len(text)
	bwt := make([]rune, n)
	for i, off := range sa {
		if off == 0 {
			bwt[i] = text[n-1]
		} else {
			bwt[i] = text[off-1]
		}
	}
	return bwt
}
