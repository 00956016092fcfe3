package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/objectstore"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/hunt/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	indexPath := flag.String("index", "", "index file to serve (overrides index.path)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *indexPath != "" {
		cfg.Index.Path = *indexPath
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "index", cfg.Index.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.ObjectStore.Enabled {
		if err := fetchIndex(ctx, cfg); err != nil {
			slog.Error("failed to fetch index from object store", "error", err)
			os.Exit(1)
		}
	}
	idx, err := reload.Open(cfg.Index.Path, m)
	if err != nil {
		slog.Error("failed to load index", "path", cfg.Index.Path, "error", err)
		os.Exit(1)
	}
	status := idx.Status()
	slog.Info("index loaded",
		"path", status.Path,
		"documents", status.Documents,
		"bytes", status.Bytes,
		"fingerprint", status.Fingerprint,
	)

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, status.Fingerprint, m)
			idx.OnSwap(queryCache.Rescope)
			slog.Info("search cache enabled",
				"addr", cfg.Redis.Addr,
				"ttl", cfg.Redis.CacheTTL,
				"fingerprint", status.Fingerprint,
			)
		}
	}

	if cfg.Index.Watch {
		go func() {
			if err := idx.Watch(ctx, cfg.Index.WatchDebounce); err != nil {
				slog.Warn("index file watch disabled", "error", err)
			}
		}()
	}

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete, idx.HandleMessage())
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("index event consumer stopped", "error", err)
			}
		}()
		slog.Info("reloading on index events",
			"topic", cfg.Kafka.Topics.IndexComplete,
			"group", cfg.Kafka.ConsumerGroup,
		)
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		st := idx.Status()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, fingerprint %s", st.Documents, st.Fingerprint),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(idx, queryCache, cfg.Search)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/index/reload", idx.Handler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window)
		go limiter.Run(ctx)
		chain = middleware.RateLimit(limiter)(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

// fetchIndex downloads the index when it is not on local disk yet.
func fetchIndex(ctx context.Context, cfg *config.Config) error {
	if _, err := os.Stat(cfg.Index.Path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	store, err := objectstore.New(cfg.ObjectStore)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(cfg.Index.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return store.Download(ctx, cfg.Index.Path)
}
