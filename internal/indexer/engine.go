// Package indexer turns documents into index entries and batches of
// documents into a collection. Each build is a full rebuild: documents are
// indexed independently, optionally in parallel, and the resulting entries
// keep the input order.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/fmindex"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/config"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/metrics"
)

// BuildMode decides what a batch build does with a document it cannot read.
type BuildMode string

const (
	// ModeAbort fails the whole build on the first unreadable document.
	ModeAbort BuildMode = config.ModeAbort
	// ModeSkipAndReport leaves unreadable documents out and lists them in
	// the Report.
	ModeSkipAndReport BuildMode = config.ModeSkipAndReport
)

// Engine indexes documents. It holds no state between builds and is safe
// for concurrent use.
type Engine struct {
	tokenizer *tokenizer.Tokenizer
	mode      BuildMode
	workers   int
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEngine validates cfg and resolves the stop words of its language from
// dict. m may be nil.
func NewEngine(cfg config.IndexConfig, dict tokenizer.Dictionary, m *metrics.Metrics) (*Engine, error) {
	lang, err := tokenizer.ParseLanguage(cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", herrors.ErrInvalidInput, err)
	}
	mode := BuildMode(cfg.Mode)
	switch mode {
	case ModeAbort, ModeSkipAndReport:
	case "":
		mode = ModeAbort
	default:
		return nil, fmt.Errorf("%w: unknown build mode %q", herrors.ErrInvalidInput, cfg.Mode)
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		tokenizer: tokenizer.New(dict, lang),
		mode:      mode,
		workers:   workers,
		metrics:   m,
		logger:    slog.Default().With("component", "indexer"),
	}, nil
}

func (e *Engine) Mode() BuildMode {
	return e.mode
}

// IndexDocument builds the entry of one document: tokens from the content,
// and suffix array, BWT and occurrence table from the sentinel-terminated
// content.
func (e *Engine) IndexDocument(filename string, content string) index.IndexEntry {
	text := fmindex.Terminate(content)
	sa := fmindex.SuffixArray(text)
	bwt := fmindex.BWTFromSuffixArray(text, sa)
	return index.IndexEntry{
		Filename:    filename,
		BWT:         bwt,
		SuffixArray: sa,
		Occurrences: fmindex.ComputeOccurrences(bwt),
		Tokens:      e.tokenizer.Tokenize(content),
	}
}

// Build indexes docs on up to Workers goroutines and returns the collection
// in input order. In ModeAbort the first unreadable document cancels the
// rest and its *errors.IndexBuildError is returned with an empty
// collection. In ModeSkipAndReport failed documents are left out, logged,
// and listed in the report. A cancelled ctx stops the build with ctx.Err().
func (e *Engine) Build(ctx context.Context, docs []Document) (index.Collection, *Report, error) {
	start := time.Now()
	report := &Report{Mode: e.mode, Documents: len(docs), StartedAt: start.UTC()}

	entries := make([]index.IndexEntry, len(docs))
	built := make([]bool, len(docs))
	failures := make([]error, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range docs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			doc := docs[i]
			content, err := doc.content()
			if err != nil {
				buildErr := &herrors.IndexBuildError{Filename: doc.Filename, Err: err}
				if e.mode == ModeAbort {
					return buildErr
				}
				failures[i] = buildErr
				return nil
			}
			entries[i] = e.IndexDocument(doc.Filename, content)
			built[i] = true
			e.logger.Debug("document indexed",
				"filename", doc.Filename,
				"runes", entries[i].Len(),
				"tokens", entries[i].Tokens.Len(),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		report.Duration = time.Since(start)
		e.logger.Error("build aborted", "error", err)
		return index.Collection{}, report, err
	}
	if err := ctx.Err(); err != nil {
		report.Duration = time.Since(start)
		return index.Collection{}, report, err
	}

	out := make([]index.IndexEntry, 0, len(docs))
	for i := range docs {
		switch {
		case built[i]:
			out = append(out, entries[i])
		case failures[i] != nil:
			e.logger.Warn("skipping unreadable document",
				"filename", docs[i].Filename,
				"error", failures[i],
			)
			report.Skipped = append(report.Skipped, Failure{
				Filename: docs[i].Filename,
				Error:    failures[i].Error(),
			})
		}
	}
	report.Indexed = len(out)
	report.Duration = time.Since(start)

	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(report.Indexed))
		e.metrics.DocsSkippedTotal.Add(float64(len(report.Skipped)))
		e.metrics.BuildDuration.Observe(report.Duration.Seconds())
		e.metrics.IndexEntries.Set(float64(report.Indexed))
	}
	e.logger.Info("build complete",
		"documents", report.Documents,
		"indexed", report.Indexed,
		"skipped", len(report.Skipped),
		"workers", e.workers,
		"duration", report.Duration,
	)
	return index.NewCollection(out), report, nil
}
