package executor

import (
	"log/slog"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/agnivade/levenshtein"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/fmindex"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/metrics"
)

const (
	ModeExact     = "exact"
	ModeFuzzy     = "fuzzy"
	ModeSubstring = "substring"
)

// Executor serves searches over one immutable collection. Token postings
// are roaring bitmaps of entry positions, so iterating a posting yields
// documents in collection order. Safe for concurrent use.
type Executor struct {
	coll     index.Collection
	fm       []*fmindex.Index
	postings map[string]*roaring.Bitmap
	vocab    []string
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// New indexes the tokens of coll. m may be nil.
func New(coll index.Collection, m *metrics.Metrics) *Executor {
	x := &Executor{
		coll:     coll,
		fm:       make([]*fmindex.Index, len(coll.Entries)),
		postings: make(map[string]*roaring.Bitmap),
		metrics:  m,
		logger:   slog.Default().With("component", "query-executor"),
	}
	for i := range coll.Entries {
		e := &coll.Entries[i]
		x.fm[i] = e.FM()
		for _, token := range e.Tokens {
			bm, ok := x.postings[token]
			if !ok {
				bm = roaring.New()
				x.postings[token] = bm
				x.vocab = append(x.vocab, token)
			}
			bm.Add(uint32(i))
		}
	}
	for _, bm := range x.postings {
		bm.RunOptimize()
	}
	sort.Strings(x.vocab)
	if m != nil {
		m.IndexEntries.Set(float64(len(coll.Entries)))
	}
	x.logger.Info("executor ready",
		"documents", len(coll.Entries),
		"vocabulary", len(x.vocab),
	)
	return x
}

// Collection returns the collection being searched.
func (x *Executor) Collection() index.Collection {
	return x.coll
}

// Documents returns the number of documents containing token.
func (x *Executor) Documents(token string) uint64 {
	bm, ok := x.postings[token]
	if !ok {
		return 0
	}
	return bm.GetCardinality()
}

// Exact is SearchExact answered from the postings.
func (x *Executor) Exact(query string) []ExactHit {
	start := time.Now()
	hits := []ExactHit{}
	if bm, ok := x.postings[query]; ok {
		it := bm.Iterator()
		for it.HasNext() {
			e := &x.coll.Entries[it.Next()]
			hits = append(hits, ExactHit{Filename: e.Filename, Locator: e.Locator()})
		}
	}
	x.observe(ModeExact, start, len(hits))
	return hits
}

// Fuzzy is SearchFuzzy with one distance computation per distinct token.
func (x *Executor) Fuzzy(query string, maxDistance int) []FuzzyHit {
	start := time.Now()
	type match struct {
		doc      uint32
		token    string
		distance int
	}
	var matches []match
	if maxDistance >= 0 {
		for _, token := range x.vocab {
			d := levenshtein.ComputeDistance(query, token)
			if d > maxDistance {
				continue
			}
			it := x.postings[token].Iterator()
			for it.HasNext() {
				matches = append(matches, match{doc: it.Next(), token: token, distance: d})
			}
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.distance != b.distance {
			return a.distance < b.distance
		}
		if a.doc != b.doc {
			return a.doc < b.doc
		}
		return a.token < b.token
	})
	hits := make([]FuzzyHit, len(matches))
	for i, m := range matches {
		hits[i] = FuzzyHit{
			Filename: x.coll.Entries[m.doc].Filename,
			Token:    m.token,
			Distance: m.distance,
		}
	}
	x.observe(ModeFuzzy, start, len(hits))
	return hits
}

// Substring is SearchSubstring over the prepared FM-indexes.
func (x *Executor) Substring(query string) []SubstringHit {
	start := time.Now()
	hits := []SubstringHit{}
	if searchable(query) {
		for i, fm := range x.fm {
			r, ok := fm.Search(query)
			if !ok {
				continue
			}
			hits = append(hits, SubstringHit{
				Filename: x.coll.Entries[i].Filename,
				Offsets:  r.Offsets(fm.SuffixArray()),
			})
		}
	}
	x.observe(ModeSubstring, start, len(hits))
	return hits
}

func (x *Executor) observe(mode string, start time.Time, n int) {
	elapsed := time.Since(start)
	x.logger.Debug("search executed", "mode", mode, "results", n, "latency", elapsed)
	if x.metrics == nil {
		return
	}
	resultType := "hit"
	if n == 0 {
		resultType = "zero_result"
	}
	x.metrics.SearchQueriesTotal.WithLabelValues(mode, resultType).Inc()
	x.metrics.SearchLatency.WithLabelValues(mode).Observe(elapsed.Seconds())
	x.metrics.SearchResultsCount.WithLabelValues(mode).Observe(float64(n))
}
