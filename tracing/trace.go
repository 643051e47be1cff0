package tracing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type traceKey struct{}

type spanKey struct{}

// NewTraceID returns an identifier of the form trace_<32 hex>.
func NewTraceID() string {
	return "trace_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewSpanID returns an identifier of the form span_<24 hex>.
func NewSpanID() string {
	return "span_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// TraceOptions configures NewTrace.
type TraceOptions struct {
	TraceID  string
	GroupID  string
	Metadata map[string]any
	Disabled bool
	Provider *Provider
}

// Trace is the root of a tree of spans for one workflow.
type Trace struct {
	id       string
	name     string
	groupID  string
	metadata map[string]any
	disabled bool
	provider *Provider

	mu        sync.Mutex
	startedAt time.Time
	endedAt   time.Time
	finished  bool
}

// NewTrace starts a trace and returns a context carrying it. The trace is
// disabled (no processor sees it) when opts.Disabled is set or the provider
// is disabled.
func NewTrace(ctx context.Context, name string, optFns ...func(o *TraceOptions)) (context.Context, *Trace) {
	opts := TraceOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	provider := opts.Provider
	if provider == nil {
		provider = DefaultProvider()
	}

	id := opts.TraceID
	if id == "" {
		id = NewTraceID()
	}

	t := &Trace{
		id:        id,
		name:      name,
		groupID:   opts.GroupID,
		metadata:  opts.Metadata,
		disabled:  opts.Disabled || provider.Disabled(),
		provider:  provider,
		startedAt: time.Now(),
	}

	if !t.disabled {
		provider.onTraceStart(t)
	}

	return context.WithValue(ctx, traceKey{}, t), t
}

// TraceFromContext returns the trace carried by ctx, if any.
func TraceFromContext(ctx context.Context) *Trace {
	t, _ := ctx.Value(traceKey{}).(*Trace)
	return t
}

// ID returns the trace identifier.
func (t *Trace) ID() string { return t.id }

// Name returns the workflow name.
func (t *Trace) Name() string { return t.name }

// GroupID links traces of one conversation.
func (t *Trace) GroupID() string { return t.groupID }

// Disabled reports whether the trace is recorded.
func (t *Trace) Disabled() bool { return t.disabled }

// StartedAt returns the start time.
func (t *Trace) StartedAt() time.Time { return t.startedAt }

// EndedAt returns the end time, zero while running.
func (t *Trace) EndedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.endedAt
}

// Finish ends the trace. Calling it more than once is a no-op.
func (t *Trace) Finish() {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}

	t.finished = true
	t.endedAt = time.Now()
	t.mu.Unlock()

	if !t.disabled {
		t.provider.onTraceEnd(t)
	}
}

// Export renders the trace as a JSON friendly map.
func (t *Trace) Export() map[string]any {
	out := map[string]any{
		"object":        "trace",
		"id":            t.id,
		"workflow_name": t.name,
		"started_at":    t.startedAt.UTC().Format(time.RFC3339Nano),
	}

	if ended := t.EndedAt(); !ended.IsZero() {
		out["ended_at"] = ended.UTC().Format(time.RFC3339Nano)
	}

	if t.groupID != "" {
		out["group_id"] = t.groupID
	}

	if len(t.metadata) > 0 {
		out["metadata"] = t.metadata
	}

	return out
}
