//go:build e2e

// Package e2e runs against a live searcher serving an index built by
// `hunt index`.
//
// Prerequisites:
//   - an index built from a corpus containing E2E_KNOWN_WORD
//   - the searcher running on E2E_SEARCHER_URL
//
// Run with:
//
//	go test -v -tags=e2e -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"
)

type searchResponse struct {
	Query     string            `json:"query"`
	Mode      string            `json:"mode"`
	Total     int               `json:"total"`
	Truncated bool              `json:"truncated"`
	Hits      []json.RawMessage `json:"hits"`
}

func searcherURL() string {
	return envOrDefault("E2E_SEARCHER_URL", "http://localhost:8080")
}

func client(t *testing.T) *http.Client {
	t.Helper()
	c := &http.Client{Timeout: 5 * time.Second}
	resp, err := c.Get(searcherURL() + "/health/live")
	if err != nil {
		t.Skipf("searcher unavailable: %v", err)
	}
	resp.Body.Close()
	return c
}

func TestSearcherHealth(t *testing.T) {
	c := client(t)
	for _, path := range []string{"/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			resp, err := c.Get(searcherURL() + path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

func TestSearchModes(t *testing.T) {
	c := client(t)
	word := envOrDefault("E2E_KNOWN_WORD", "index")

	cases := []struct {
		mode   string
		params url.Values
	}{
		{"exact", url.Values{"q": {word}}},
		{"fuzzy", url.Values{"q": {word}, "mode": {"fuzzy"}, "distance": {"1"}}},
		{"substring", url.Values{"q": {word}, "mode": {"substring"}}},
	}
	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			resp, err := c.Get(searcherURL() + "/api/v1/search?" + tc.params.Encode())
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
			}
			var sr searchResponse
			if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
				t.Fatal(err)
			}
			if sr.Mode != tc.mode {
				t.Errorf("mode = %q", sr.Mode)
			}
			if sr.Total == 0 {
				t.Errorf("no %s hits for %q; is the index built from a corpus containing it?", tc.mode, word)
			}
			if !sr.Truncated && len(sr.Hits) != sr.Total {
				t.Errorf("hits = %d, total = %d", len(sr.Hits), sr.Total)
			}
		})
	}
}

func TestSearchRejectsBadRequests(t *testing.T) {
	c := client(t)
	for _, query := range []string{"", "q=fox&mode=regex", "q=fox&mode=fuzzy&distance=-1"} {
		resp, err := c.Get(searcherURL() + "/api/v1/search?" + query)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%q: expected 400, got %d", query, resp.StatusCode)
		}
	}
}

func TestReloadUnchanged(t *testing.T) {
	c := client(t)
	resp, err := c.Post(searcherURL()+"/api/v1/index/reload", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var body struct {
		Reloaded    bool   `json:"reloaded"`
		Documents   int    `json:"documents"`
		Fingerprint string `json:"fingerprint"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	t.Logf("reload: reloaded=%v documents=%d fingerprint=%s", body.Reloaded, body.Documents, body.Fingerprint)
	if body.Fingerprint == "" {
		t.Error("reload response carries no fingerprint")
	}
}

func TestCacheStats(t *testing.T) {
	c := client(t)
	resp, err := c.Get(searcherURL() + "/api/v1/cache/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		var stats map[string]any
		json.NewDecoder(resp.Body).Decode(&stats)
		t.Logf("cache stats: %v", stats)
	case http.StatusServiceUnavailable:
		t.Log("cache is disabled")
	default:
		t.Errorf("unexpected status %d", resp.StatusCode)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
