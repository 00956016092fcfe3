// Package benchmark measures the indexing pipeline end to end: building a
// collection, persisting and reloading it, and serving each search mode.
package benchmark

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/config"
)

var vocabulary = strings.Fields(`
	search engine distributed indexing query processing cache suffix array
	burrows wheeler transform occurrence table backward pattern document
	token stop word levenshtein distance fuzzy exact substring segment
	compression checksum rename lock worker report build collection`)

func corpus(docs, words int) []indexer.Document {
	rng := rand.New(rand.NewSource(42))
	out := make([]indexer.Document, docs)
	for i := range out {
		var sb strings.Builder
		for w := 0; w < words; w++ {
			if w > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(vocabulary[rng.Intn(len(vocabulary))])
		}
		out[i] = indexer.Text(fmt.Sprintf("doc-%04d.txt", i), sb.String())
	}
	return out
}

func newEngine(b *testing.B, workers int) *indexer.Engine {
	b.Helper()
	cfg := config.IndexConfig{Language: "en", Mode: config.ModeAbort, Workers: workers}
	e, err := indexer.NewEngine(cfg, tokenizer.BuiltinDictionary(), nil)
	if err != nil {
		b.Fatal(err)
	}
	return e
}

func build(b *testing.B, docs, words int) index.Collection {
	b.Helper()
	coll, _, err := newEngine(b, 4).Build(context.Background(), corpus(docs, words))
	if err != nil {
		b.Fatal(err)
	}
	return coll
}

// BenchmarkBuild measures a full rebuild at several worker counts.
func BenchmarkBuild(b *testing.B) {
	docs := corpus(200, 400)
	for _, workers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			e := newEngine(b, workers)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, _, err := e.Build(context.Background(), docs); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkSaveLoad measures persisting and decoding a collection with each
// compression codec.
func BenchmarkSaveLoad(b *testing.B) {
	coll := build(b, 100, 400)
	for _, c := range []segment.Compression{segment.CompressionNone, segment.CompressionLZ4, segment.CompressionZSTD} {
		b.Run(c.String(), func(b *testing.B) {
			path := filepath.Join(b.TempDir(), "index.bin")
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				n, err := segment.Save(coll, path, segment.Options{Compression: c})
				if err != nil {
					b.Fatal(err)
				}
				if _, err := segment.Load(path); err != nil {
					b.Fatal(err)
				}
				b.SetBytes(n)
			}
		})
	}
}

// BenchmarkSearch measures each search mode over 1 000 documents.
func BenchmarkSearch(b *testing.B) {
	x := executor.New(build(b, 1000, 200), nil)
	cases := []struct {
		name string
		run  func()
	}{
		{"exact", func() { x.Exact("levenshtein") }},
		{"fuzzy-d1", func() { x.Fuzzy("serch", 1) }},
		{"fuzzy-d2", func() { x.Fuzzy("indxing", 2) }},
		{"substring", func() { x.Substring("wheeler trans") }},
	}
	for _, tc := range cases {
		b.Run(tc.name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				tc.run()
			}
		})
	}
}

// BenchmarkSearchParallel measures concurrent read throughput of one
// executor.
func BenchmarkSearchParallel(b *testing.B) {
	x := executor.New(build(b, 1000, 200), nil)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			x.Substring("suffix")
		}
	})
}
