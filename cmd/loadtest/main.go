// Command loadtest drives the searcher's search endpoint with a rotating mix
// of exact, fuzzy and substring queries and reports latency per search mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"
)

var modes = []string{"exact", "fuzzy", "substring"}

// Query is one request in the rotation.
type Query struct {
	Mode     string
	Text     string
	Distance int
}

func (q Query) URL(base string) string {
	params := url.Values{"q": {q.Text}, "mode": {q.Mode}}
	if q.Mode == "fuzzy" {
		params.Set("distance", strconv.Itoa(q.Distance))
	}
	return strings.TrimRight(base, "/") + "/api/v1/search?" + params.Encode()
}

// rotation pairs every word with each mode. Substring queries drop the last
// rune so they exercise partial matches.
func rotation(words []string, distance int) []Query {
	queries := make([]Query, 0, len(words)*len(modes))
	for _, w := range words {
		r := []rune(w)
		if len(r) > 1 {
			r = r[:len(r)-1]
		}
		queries = append(queries,
			Query{Mode: "exact", Text: w},
			Query{Mode: "fuzzy", Text: w, Distance: distance},
			Query{Mode: "substring", Text: string(r)},
		)
	}
	return queries
}

type recorder struct {
	mu        sync.Mutex
	latencies map[string][]time.Duration
	statuses  map[int]int
	failed    int
}

func newRecorder() *recorder {
	return &recorder{
		latencies: make(map[string][]time.Duration),
		statuses:  make(map[int]int),
	}
}

func (r *recorder) record(mode string, d time.Duration, status int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		return
	}
	r.statuses[status]++
	r.latencies[mode] = append(r.latencies[mode], d)
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.failed
	for _, c := range r.statuses {
		n += c
	}
	return n
}

type summary struct {
	Count              int
	Min, P50, P90, P99 time.Duration
	Max                time.Duration
}

func summarize(latencies []time.Duration) summary {
	if len(latencies) == 0 {
		return summary{}
	}
	sorted := slices.Clone(latencies)
	slices.Sort(sorted)
	return summary{
		Count: len(sorted),
		Min:   sorted[0],
		P50:   percentile(sorted, 50),
		P90:   percentile(sorted, 90),
		P99:   percentile(sorted, 99),
		Max:   sorted[len(sorted)-1],
	}
}

// percentile uses the nearest-rank method on sorted.
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := (p*len(sorted)+99)/100 - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}

func run(ctx context.Context, client *http.Client, base string, queries []Query, workers int, rec *recorder) error {
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				q := queries[i%len(queries)]
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.URL(base), nil)
				if err != nil {
					return err
				}
				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						rec.record(q.Mode, time.Since(start), 0, err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				rec.record(q.Mode, time.Since(start), resp.StatusCode, nil)
			}
			return nil
		})
	}
	return g.Wait()
}

func report(w io.Writer, rec *recorder, elapsed time.Duration) {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "mode\trequests\tmin\tp50\tp90\tp99\tmax\t")
	for _, m := range modes {
		s := summarize(rec.latencies[m])
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t\n", m, s.Count, s.Min, s.P50, s.P90, s.P99, s.Max)
	}
	tw.Flush()

	codes := make([]int, 0, len(rec.statuses))
	total := rec.failed
	for code, n := range rec.statuses {
		codes = append(codes, code)
		total += n
	}
	slices.Sort(codes)
	fmt.Fprintln(w)
	for _, code := range codes {
		fmt.Fprintf(w, "status %d: %d\n", code, rec.statuses[code])
	}
	fmt.Fprintf(w, "transport errors: %d\n", rec.failed)
	if elapsed > 0 {
		fmt.Fprintf(w, "throughput: %.1f req/s\n", float64(total)/elapsed.Seconds())
	}
}

func main() {
	base := flag.String("url", "http://localhost:8080", "base URL of the searcher")
	workers := flag.Int("concurrency", 10, "concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	distance := flag.Int("distance", 2, "edit distance for fuzzy queries")
	words := flag.String("words", "index,search,document,suffix,fuzzy,token,segment,cache,query,build",
		"comma-separated query words")
	flag.Parse()

	queries := rotation(strings.Split(*words, ","), *distance)
	slog.Info("starting load test",
		"url", *base,
		"concurrency", *workers,
		"duration", *duration,
		"queries", len(queries),
	)

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        *workers * 2,
			MaxIdleConnsPerHost: *workers * 2,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	rec := newRecorder()
	start := time.Now()
	if err := run(ctx, client, *base, queries, *workers, rec); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("load test failed", "error", err)
		os.Exit(1)
	}
	report(os.Stdout, rec, time.Since(start))

	if rec.total() == 0 {
		slog.Error("no requests completed; is the searcher running?")
		os.Exit(1)
	}
}
