package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestQueryURL(t *testing.T) {
	tests := []struct {
		q    Query
		want url.Values
	}{
		{Query{Mode: "exact", Text: "fox"}, url.Values{"q": {"fox"}, "mode": {"exact"}}},
		{Query{Mode: "fuzzy", Text: "fox", Distance: 1}, url.Values{"q": {"fox"}, "mode": {"fuzzy"}, "distance": {"1"}}},
		{Query{Mode: "substring", Text: "quick br"}, url.Values{"q": {"quick br"}, "mode": {"substring"}}},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.q.URL("http://host:8080/"))
		if err != nil {
			t.Fatal(err)
		}
		if u.Path != "/api/v1/search" {
			t.Errorf("path = %q", u.Path)
		}
		if got := u.Query(); got.Encode() != tt.want.Encode() {
			t.Errorf("%+v: query = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestRotation(t *testing.T) {
	qs := rotation([]string{"café", "x"}, 2)
	if len(qs) != 6 {
		t.Fatalf("len = %d", len(qs))
	}
	if qs[1].Distance != 2 || qs[1].Mode != "fuzzy" {
		t.Errorf("fuzzy query = %+v", qs[1])
	}
	if qs[2].Text != "caf" {
		t.Errorf("substring of café = %q, want caf", qs[2].Text)
	}
	if qs[5].Text != "x" {
		t.Errorf("substring of single rune word = %q", qs[5].Text)
	}
}

func TestSummarize(t *testing.T) {
	var ds []time.Duration
	for i := 100; i >= 1; i-- {
		ds = append(ds, time.Duration(i)*time.Millisecond)
	}
	s := summarize(ds)
	if s.Count != 100 || s.Min != time.Millisecond || s.Max != 100*time.Millisecond {
		t.Errorf("summary = %+v", s)
	}
	if s.P50 != 50*time.Millisecond || s.P90 != 90*time.Millisecond || s.P99 != 99*time.Millisecond {
		t.Errorf("percentiles = %v %v %v", s.P50, s.P90, s.P99)
	}
	if ds[0] != 100*time.Millisecond {
		t.Error("summarize reordered its input")
	}
	if (summarize(nil) != summary{}) {
		t.Error("empty input should give a zero summary")
	}
}

func TestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") == "fuzzy" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"total":0}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	rec := newRecorder()
	if err := run(ctx, srv.Client(), srv.URL, rotation([]string{"fox"}, 1), 3, rec); err != nil {
		t.Fatalf("run: %v", err)
	}
	if rec.total() == 0 || rec.statuses[http.StatusOK] == 0 || rec.statuses[http.StatusBadRequest] == 0 {
		t.Errorf("statuses = %v", rec.statuses)
	}
	if len(rec.latencies["substring"]) == 0 {
		t.Error("no substring latencies recorded")
	}

	var buf bytes.Buffer
	report(&buf, rec, time.Second)
	out := buf.String()
	for _, want := range []string{"exact", "fuzzy", "substring", "status 200:", "status 400:", "req/s"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
