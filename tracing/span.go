package tracing

import (
	"context"
	"sync"
	"time"
)

// SpanError records a failure attached to a span.
type SpanError struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Span is a timed operation inside a trace.
type Span struct {
	id       string
	parentID string
	trace    *Trace
	data     SpanData
	noop     bool

	mu        sync.Mutex
	startedAt time.Time
	endedAt   time.Time
	err       *SpanError
	finished  bool
}

// StartSpan starts a span under the current span (or trace root) of ctx and
// returns a context carrying it. Without an enabled trace the span is a no-op.
func StartSpan(ctx context.Context, data SpanData) (context.Context, *Span) {
	t := TraceFromContext(ctx)
	if t == nil || t.disabled {
		return ctx, &Span{data: data, noop: true, trace: t}
	}

	s := &Span{
		id:        NewSpanID(),
		trace:     t,
		data:      data,
		startedAt: time.Now(),
	}

	if parent := SpanFromContext(ctx); parent != nil && !parent.noop {
		s.parentID = parent.id
	}

	t.provider.onSpanStart(s)

	return context.WithValue(ctx, spanKey{}, s), s
}

// SpanFromContext returns the innermost span carried by ctx, if any.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

// CustomSpan starts a user defined span.
func CustomSpan(ctx context.Context, name string, data map[string]any) (context.Context, *Span) {
	return StartSpan(ctx, &CustomSpanData{Name: name, Data: data})
}

// AgentSpan starts a span for an agent's turn sequence.
func AgentSpan(ctx context.Context, name string, handoffs, tools []string, outputType string) (context.Context, *Span) {
	return StartSpan(ctx, &AgentSpanData{Name: name, Handoffs: handoffs, Tools: tools, OutputType: outputType})
}

// GenerationSpan starts a span for one model call.
func GenerationSpan(ctx context.Context, modelName string, config map[string]any) (context.Context, *Span) {
	return StartSpan(ctx, &GenerationSpanData{Model: modelName, ModelConfig: config})
}

// FunctionSpan starts a span for one tool call.
func FunctionSpan(ctx context.Context, name, input string) (context.Context, *Span) {
	return StartSpan(ctx, &FunctionSpanData{Name: name, Input: input})
}

// HandoffSpan starts a span for a handoff.
func HandoffSpan(ctx context.Context, from, to string) (context.Context, *Span) {
	return StartSpan(ctx, &HandoffSpanData{FromAgent: from, ToAgent: to})
}

// GuardrailSpan starts a span for a guardrail evaluation.
func GuardrailSpan(ctx context.Context, name string) (context.Context, *Span) {
	return StartSpan(ctx, &GuardrailSpanData{Name: name})
}

// ID returns the span identifier (empty for no-op spans).
func (s *Span) ID() string { return s.id }

// ParentID returns the parent span identifier, empty for top level spans.
func (s *Span) ParentID() string { return s.parentID }

// TraceID returns the owning trace identifier.
func (s *Span) TraceID() string {
	if s.trace == nil {
		return ""
	}
	return s.trace.id
}

// Data returns the span payload. Callers may update it before Finish.
func (s *Span) Data() SpanData { return s.data }

// Recording reports whether the span is delivered to processors.
func (s *Span) Recording() bool { return !s.noop }

// SetError marks the span as failed.
func (s *Span) SetError(message string, data map[string]any) {
	s.mu.Lock()
	s.err = &SpanError{Message: message, Data: data}
	s.mu.Unlock()
}

// Error returns the recorded failure, if any.
func (s *Span) Error() *SpanError {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// StartedAt returns the start time.
func (s *Span) StartedAt() time.Time { return s.startedAt }

// EndedAt returns the end time, zero while running.
func (s *Span) EndedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.endedAt
}

// Finish ends the span. Calling it more than once is a no-op.
func (s *Span) Finish() {
	if s.noop {
		return
	}

	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}

	s.finished = true
	s.endedAt = time.Now()
	s.mu.Unlock()

	s.trace.provider.onSpanEnd(s)
}

// Export renders the span as a JSON friendly map.
func (s *Span) Export() map[string]any {
	out := map[string]any{
		"object":     "trace.span",
		"id":         s.id,
		"trace_id":   s.TraceID(),
		"started_at": s.startedAt.UTC().Format(time.RFC3339Nano),
		"span_data":  s.data.Export(),
	}

	if s.parentID != "" {
		out["parent_id"] = s.parentID
	}

	if ended := s.EndedAt(); !ended.IsZero() {
		out["ended_at"] = ended.UTC().Format(time.RFC3339Nano)
	}

	if err := s.Error(); err != nil {
		out["error"] = err
	}

	return out
}
