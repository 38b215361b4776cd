// Package tracing records nested timing spans in a context. A finished
// root span is written as one slog record per span, depth first.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/inverton/pkg/logger"
	"github.com/google/uuid"
)

type contextKey struct{}

// Span is a timed operation. Spans started from a context that already
// carries a span become its children and share its trace ID.
type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration

	mu       sync.Mutex
	attrs    []any
	children []*Span
}

// Start opens a span named name. A root span takes its trace ID from the
// request ID in ctx, or a fresh UUID when there is none.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, Start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else if id := logger.RequestID(ctx); id != "" {
		span.TraceID = id
	} else {
		span.TraceID = uuid.NewString()
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// FromContext returns the innermost span in ctx, or nil.
func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

// End fixes the span duration. Calling End again moves it forward.
func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
}

// SetAttr attaches a key/value pair written with the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Children returns a copy of the direct child spans in start order.
func (s *Span) Children() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Span, len(s.children))
	copy(out, s.children)
	return out
}

// Log writes the span tree to l at level. Nothing is formatted when the
// level is disabled.
func (s *Span) Log(ctx context.Context, l *slog.Logger, level slog.Level) {
	if !l.Enabled(ctx, level) {
		return
	}
	s.log(ctx, l, level, 0)
}

func (s *Span) log(ctx context.Context, l *slog.Logger, level slog.Level, depth int) {
	s.mu.Lock()
	attrs := make([]any, 0, 8+len(s.attrs))
	attrs = append(attrs,
		"trace_id", s.TraceID,
		"span", s.Name,
		"depth", depth,
		"duration_us", s.Duration.Microseconds(),
	)
	attrs = append(attrs, s.attrs...)
	children := s.children
	s.mu.Unlock()

	l.Log(ctx, level, "span", attrs...)
	for _, child := range children {
		child.log(ctx, l, level, depth+1)
	}
}
