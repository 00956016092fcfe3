package fmindex

import "sort"

// SuffixArray returns the offsets 0..N-1 of text ordered by the suffix
// starting at each offset. A suffix that is a proper prefix of another sorts
// first. Construction is prefix doubling: each round sorts by the rank pair
// (rank[i], rank[i+k]) until every rank is distinct.
func SuffixArray(text []rune) []int {
	n := len(text)
	sa := make([]int, n)
	if n == 0 {
		return sa
	}
	rank := make([]int, n)
	tmp := make([]int, n)
	for i, r := range text {
		sa[i] = i
		rank[i] = int(r)
	}
	for k := 1; ; k <<= 1 {
		second := func(i int) int {
			if i+k < n {
				return rank[i+k]
			}
			return -1
		}
		less := func(a, b int) bool {
			if rank[a] != rank[b] {
				return rank[a] < rank[b]
			}
			return second(a) < second(b)
		}
		sort.Slice(sa, func(i, j int) bool { return less(sa[i], sa[j]) })

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			tmp[sa[i]] = tmp[sa[i-1]]
			if less(sa[i-1], sa[i]) {
				tmp[sa[i]]++
			}
		}
		copy(rank, tmp)
		if rank[sa[n-1]] == n-1 || k >= n {
			break
		}
	}
	return sa
}
