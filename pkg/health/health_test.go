package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func fixed(s Status) Check {
	return func(ctx context.Context) ComponentHealth {
		return ComponentHealth{Status: s}
	}
}

func TestRunWorstStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]Status
		want   Status
	}{
		{"none", nil, StatusUp},
		{"all up", map[string]Status{"index": StatusUp, "redis": StatusUp}, StatusUp},
		{"degraded", map[string]Status{"index": StatusUp, "redis": StatusDegraded}, StatusDegraded},
		{"down wins", map[string]Status{"index": StatusDown, "redis": StatusDegraded}, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for name, s := range tt.checks {
				c.Register(name, fixed(s))
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("Status = %s, want %s", report.Status, tt.want)
			}
			if len(report.Components) != len(tt.checks) {
				t.Errorf("Components = %v", report.Components)
			}
		})
	}
}

func TestReadyHandler(t *testing.T) {
	c := NewChecker()
	c.Register("redis", fixed(StatusDegraded))
	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded should still be ready, got %d", rec.Code)
	}

	c.Register("index", fixed(StatusDown))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("down should be 503, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("live = %d", rec.Code)
	}
}
