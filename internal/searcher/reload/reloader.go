// Package reload keeps the searcher serving the newest build of its index
// file. A Reloader answers searches from the executor of the last file it
// loaded and swaps in a new executor when the file is rebuilt, either on an
// index.complete notification or on request.
package reload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/report"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/hunt/internal/searcher/executor"
	herrors "github.com/Adithya-Monish-Kumar-K/hunt/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/hunt/pkg/metrics"
)

// SwapHook runs after a new index is swapped in, with its fingerprint.
type SwapHook func(ctx context.Context, fingerprint string) error

// Status describes the index currently served.
type Status struct {
	Path        string    `json:"path"`
	Documents   int       `json:"documents"`
	Bytes       int64     `json:"bytes"`
	Fingerprint string    `json:"fingerprint"`
	LoadedAt    time.Time `json:"loaded_at"`
}

type loaded struct {
	exec   *executor.Executor
	info   segment.Info
	status Status
}

type Reloader struct {
	path    string
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	hooks   []SwapHook
	current atomic.Pointer[loaded]
}

// Open loads the index at path. m may be nil.
func Open(path string, m *metrics.Metrics) (*Reloader, error) {
	r := &Reloader{
		path:    path,
		metrics: m,
		logger:  slog.Default().With("component", "index-reloader", "path", path),
	}
	cur, err := r.load()
	if err != nil {
		return nil, err
	}
	r.swap(cur)
	return r, nil
}

// Fingerprint identifies the served index by the checksum of its file.
func Fingerprint(info segment.Info) string {
	return fmt.Sprintf("%08x", info.Checksum)
}

// OnSwap registers a hook run after every successful swap.
func (r *Reloader) OnSwap(hook SwapHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

func (r *Reloader) Status() Status {
	return r.current.Load().status
}

func (r *Reloader) Exact(query string) []executor.ExactHit {
	return r.current.Load().exec.Exact(query)
}

func (r *Reloader) Fuzzy(query string, maxDistance int) []executor.FuzzyHit {
	return r.current.Load().exec.Fuzzy(query, maxDistance)
}

func (r *Reloader) Substring(query string) []executor.SubstringHit {
	return r.current.Load().exec.Substring(query)
}

// Reload reads the index file again and swaps it in if its checksum or size
// changed. It reports whether a swap happened. On error the previous index
// keeps serving.
func (r *Reloader) Reload(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.load()
	if err != nil {
		r.count("failed")
		r.logger.Error("index reload failed, keeping current index", "error", err)
		return false, err
	}
	prev := r.current.Load()
	if prev.info.Checksum == next.info.Checksum && prev.info.Bytes == next.info.Bytes {
		r.count("unchanged")
		r.logger.Debug("index unchanged", "fingerprint", prev.status.Fingerprint)
		return false, nil
	}
	r.swap(next)
	r.count("reloaded")
	r.logger.Info("index reloaded",
		"documents", next.status.Documents,
		"bytes", next.status.Bytes,
		"from", prev.status.Fingerprint,
		"to", next.status.Fingerprint,
	)
	for _, hook := range r.hooks {
		if err := hook(ctx, next.status.Fingerprint); err != nil {
			r.logger.Warn("swap hook failed", "error", err)
		}
	}
	return true, nil
}

// HandleMessage reloads on index.complete events for this reloader's path
// and ignores events for other index files.
func (r *Reloader) HandleMessage() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		evt, err := kafka.DecodeJSON[report.IndexBuilt](value)
		if err != nil {
			r.logger.Error("dropping undecodable index event", "key", string(key), "error", err)
			return nil
		}
		if !samePath(evt.Path, r.path) {
			r.logger.Debug("ignoring event for another index", "event_path", evt.Path)
			return nil
		}
		_, err = r.Reload(ctx)
		return err
	}
}

// Handler serves POST /api/v1/index/reload.
func (r *Reloader) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		reloaded, err := r.Reload(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(herrors.HTTPStatusCode(err))
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(struct {
			Reloaded bool `json:"reloaded"`
			Status
		}{reloaded, r.Status()})
	}
}

func (r *Reloader) load() (*loaded, error) {
	coll, info, err := segment.LoadWithInfo(r.path)
	if err != nil {
		return nil, err
	}
	return &loaded{
		exec: executor.New(coll, r.metrics),
		info: info,
		status: Status{
			Path:        r.path,
			Documents:   coll.Len(),
			Bytes:       info.Bytes,
			Fingerprint: Fingerprint(info),
			LoadedAt:    time.Now().UTC(),
		},
	}, nil
}

func (r *Reloader) swap(next *loaded) {
	r.current.Store(next)
	if r.metrics != nil {
		r.metrics.IndexBytes.Set(float64(next.info.Bytes))
	}
}

func (r *Reloader) count(result string) {
	if r.metrics != nil {
		r.metrics.IndexReloadsTotal.WithLabelValues(result).Inc()
	}
}

func samePath(a, b string) bool {
	return absPath(a) == absPath(b)
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
