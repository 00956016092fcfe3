// Package tracing times the phases of a long operation, such as an index
// build, as a tree of spans carried in a context and logged through slog.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed phase. Children are the phases started from its context.
type Span struct {
	Name     string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	ended    bool
	attrs    []any
	children []*Span
}

// Start begins a span named name, as a child of the span in ctx if any.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	s := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, s)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, s), s
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(contextKey{}).(*Span)
	return s
}

// End fixes the span duration and returns it. Later calls return the same
// duration.
func (s *Span) End() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.Duration = time.Since(s.Start)
		s.ended = true
	}
	return s.Duration
}

// Set attaches key/value pairs that are logged with the span. Attributes set
// after End are dropped.
func (s *Span) Set(kv ...any) {
	s.mu.Lock()
	if !s.ended {
		s.attrs = append(s.attrs, kv...)
	}
	s.mu.Unlock()
}

// Children returns the direct child spans in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// Log writes the span tree depth first, one record per span.
func (s *Span) Log(logger *slog.Logger, level slog.Level) {
	s.log(logger, level, "")
}

func (s *Span) log(logger *slog.Logger, level slog.Level, parent string) {
	s.mu.Lock()
	path := s.Name
	if parent != "" {
		path = parent + "/" + s.Name
	}
	args := append([]any{"span", path, "duration", s.Duration}, s.attrs...)
	children := append([]*Span(nil), s.children...)
	s.mu.Unlock()

	logger.Log(context.Background(), level, "span", args...)
	for _, c := range children {
		c.log(logger, level, path)
	}
}
