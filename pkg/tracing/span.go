// Package tracing records the phases of one experiment run as a tree of
// timed spans carried through the context, and logs the tree once the run
// ends.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

type Span struct {
	Name     string
	TraceID  string
	Start    time.Time
	Duration time.Duration
	Attrs    map[string]any
	Children []*Span

	mu sync.Mutex
}

// StartSpan begins a root span for traceID.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := &Span{Name: name, TraceID: traceID, Start: time.Now(), Attrs: map[string]any{}}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild begins a span under the one in ctx. Without a parent the span
// is detached but still usable.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, Start: time.Now(), Attrs: map[string]any{}}
	if parent := FromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

func (s *Span) End() {
	s.mu.Lock()
	s.Duration = time.Since(s.Start)
	s.mu.Unlock()
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// Log writes the span and its descendants at debug level, depth first.
func (s *Span) Log(ctx context.Context, logger *slog.Logger) {
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	s.log(ctx, logger, 0)
}

func (s *Span) log(ctx context.Context, logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{"trace_id", s.TraceID, "span", s.Name, "depth", depth, "duration", s.Duration}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	logger.DebugContext(ctx, "span", attrs...)
	for _, child := range children {
		child.log(ctx, logger, depth+1)
	}
}
