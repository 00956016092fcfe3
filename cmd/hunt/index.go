package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/report"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/source"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/objectstore"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/tracing"
)

var sinkBackoff = resilience.Backoff{
	Attempts:       3,
	Initial:        500 * time.Millisecond,
	AttemptTimeout: 10 * time.Second,
}

func newIndexCommand(root *rootOptions) *cobra.Command {
	var (
		out         string
		mode        string
		workers     int
		compression string
	)
	cmd := &cobra.Command{
		Use:   "index [dirs...]",
		Short: "Build an index file from the given directories (default: current directory)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("out") {
				cfg.Index.Path = out
			}
			if cmd.Flags().Changed("mode") {
				cfg.Index.Mode = mode
			}
			if cmd.Flags().Changed("workers") {
				cfg.Index.Workers = workers
			}
			if cmd.Flags().Changed("compression") {
				cfg.Index.Compression = compression
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, trace := tracing.Start(ctx, "index")
			defer func() {
				trace.End()
				trace.Log(slog.Default(), slog.LevelDebug)
			}()

			comp, err := segment.ParseCompression(cfg.Index.Compression)
			if err != nil {
				return err
			}
			engine, err := indexer.NewEngine(cfg.Index, tokenizer.BuiltinDictionary(), metrics.New())
			if err != nil {
				return err
			}

			opts := source.WalkOptions{
				Extensions:  cfg.Index.Extensions,
				SkipHidden:  cfg.Index.SkipHidden,
				ExcludeDirs: cfg.Index.ExcludeDirs,
			}
			_, walkSpan := tracing.Start(ctx, "walk")
			var paths []string
			for _, dir := range args {
				found, err := source.Walk(dir, opts)
				if err != nil {
					return err
				}
				paths = append(paths, found...)
			}
			walkSpan.Set("documents", len(paths))
			walkSpan.End()
			slog.Info("documents discovered", "roots", len(args), "documents", len(paths))

			buildCtx, buildSpan := tracing.Start(ctx, "build")
			coll, rep, err := engine.Build(buildCtx, source.Documents(paths))
			if err != nil {
				buildSpan.Set("error", err)
				buildSpan.End()
				return err
			}
			buildSpan.Set("indexed", rep.Indexed, "skipped", len(rep.Skipped))
			buildSpan.End()

			_, saveSpan := tracing.Start(ctx, "save")
			n, err := segment.Save(coll, cfg.Index.Path, segment.Options{Compression: comp})
			if err != nil {
				saveSpan.Set("error", err)
				saveSpan.End()
				return err
			}
			saveSpan.Set("bytes", n)
			saveSpan.End()
			slog.Info("index saved",
				"path", cfg.Index.Path,
				"bytes", n,
				"compression", comp,
			)

			// Searchers match events by absolute path.
			published := cfg.Index.Path
			if abs, err := filepath.Abs(published); err == nil {
				published = abs
			}
			if cfg.ObjectStore.Enabled {
				publishBuild(ctx, "object-store", func(ctx context.Context) error {
					store, err := objectstore.New(cfg.ObjectStore)
					if err != nil {
						return resilience.Permanent(err)
					}
					_, err = store.Upload(ctx, cfg.Index.Path, map[string]string{
						"documents": strconv.Itoa(rep.Documents),
						"indexed":   strconv.Itoa(rep.Indexed),
						"mode":      string(rep.Mode),
					})
					return err
				})
			}
			if cfg.Kafka.Enabled {
				producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
				notifier := report.NewNotifier(producer)
				publishBuild(ctx, "kafka", func(ctx context.Context) error {
					return notifier.IndexBuilt(ctx, published, n, rep)
				})
				if err := producer.Close(); err != nil {
					slog.Warn("closing kafka producer", "error", err)
				}
			}
			if cfg.Postgres.Enabled {
				publishBuild(ctx, "postgres", func(ctx context.Context) error {
					db, err := postgres.New(ctx, cfg.Postgres)
					if err != nil {
						return err
					}
					defer db.Close()
					store := report.NewStore(db)
					prev, err := store.LatestBuild(ctx, published)
					if err != nil {
						return err
					}
					if prev != nil {
						slog.Info("previous build",
							"id", prev.ID,
							"indexed", prev.Report.Indexed,
							"delta", rep.Indexed-prev.Report.Indexed,
							"at", prev.CreatedAt,
						)
					}
					_, err = store.SaveBuild(ctx, published, n, rep)
					return err
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d of %d documents into %s (%d bytes)\n",
				rep.Indexed, rep.Documents, cfg.Index.Path, n)
			for _, f := range rep.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %s\n", f.Filename, f.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "index.bin", "index file to write")
	cmd.Flags().StringVar(&mode, "mode", "abort", "what to do with unreadable files: abort or skip")
	cmd.Flags().IntVar(&workers, "workers", 4, "documents indexed in parallel")
	cmd.Flags().StringVar(&compression, "compression", "zstd", "body compression: none, lz4 or zstd")
	return cmd
}

// publishBuild delivers the build to an optional sink with retries. The
// index file is already on disk, so a failed delivery is logged rather than
// returned.
func publishBuild(ctx context.Context, sink string, fn func(ctx context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	sinkCtx, span := tracing.Start(ctx, "publish-"+sink)
	defer span.End()
	if err := resilience.Retry(sinkCtx, "publish build to "+sink, sinkBackoff, fn); err != nil {
		span.Set("error", err)
		slog.Warn("build report not delivered", "sink", sink, "error", err)
	}
}
