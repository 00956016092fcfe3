// Package executor runs exact, fuzzy and substring searches over an index
// collection. The package-level functions scan the collection directly;
// Executor answers the same queries from postings built once per collection.
package executor

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/fmindex"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
)

// ExactHit is a document containing the query token. Locator is the first
// suffix-array offset of the document and only proves the document exists;
// it is not the position of the match.
type ExactHit struct {
	Filename string `json:"filename"`
	Locator  int    `json:"locator"`
}

// FuzzyHit is a document token within the distance bound of the query.
type FuzzyHit struct {
	Filename string `json:"filename"`
	Token    string `json:"token"`
	Distance int    `json:"distance"`
}

// SubstringHit lists the rune offsets of every occurrence of the query in a
// document, ascending.
type SubstringHit struct {
	Filename string `json:"filename"`
	Offsets  []int  `json:"offsets"`
}

// SearchExact returns, in collection order, every entry whose token set
// contains query.
func SearchExact(query string, coll index.Collection) []ExactHit {
	hits := []ExactHit{}
	for i := range coll.Entries {
		e := &coll.Entries[i]
		if e.Tokens.Contains(query) {
			hits = append(hits, ExactHit{Filename: e.Filename, Locator: e.Locator()})
		}
	}
	return hits
}

// SearchFuzzy returns every (document, token) pair whose Levenshtein
// distance to query is at most maxDistance, ordered by distance. Equal
// distances keep collection order, then token order.
func SearchFuzzy(query string, maxDistance int, coll index.Collection) []FuzzyHit {
	hits := []FuzzyHit{}
	if maxDistance < 0 {
		return hits
	}
	for i := range coll.Entries {
		e := &coll.Entries[i]
		for _, token := range e.Tokens {
			d := levenshtein.ComputeDistance(query, token)
			if d <= maxDistance {
				hits = append(hits, FuzzyHit{Filename: e.Filename, Token: token, Distance: d})
			}
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

// SearchSubstring runs FM-index backward search over every entry and
// returns the documents in which query occurs as a substring. An empty query
// or one containing the terminator matches nothing.
func SearchSubstring(query string, coll index.Collection) []SubstringHit {
	hits := []SubstringHit{}
	if !searchable(query) {
		return hits
	}
	for i := range coll.Entries {
		e := &coll.Entries[i]
		r, ok := fmindex.BackwardSearch(e.BWT, e.SuffixArray, e.Occurrences, query)
		if !ok {
			continue
		}
		hits = append(hits, SubstringHit{Filename: e.Filename, Offsets: r.Offsets(e.SuffixArray)})
	}
	return hits
}

func searchable(query string) bool {
	return query != "" && !strings.ContainsRune(query, fmindex.Sentinel)
}
