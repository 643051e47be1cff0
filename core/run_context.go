package core

import (
	"context"
	"maps"
	"sync"

	"github.com/hupe1980/agentkit/logging"
)

// RunContext carries the per-run scope handed to tools, guardrails, handoff
// callbacks and dynamic instructions. It aggregates:
//   - The ambient cancellation Context
//   - The run identifier
//   - The caller supplied context Value (never sent to the model)
//   - Accumulated token Usage
//   - A small key/value state map shared by everything in the run
//
// A RunContext is safe for concurrent use by parallel tool calls.
type RunContext struct {
	Context context.Context
	RunID   string
	Value   any

	shared *runState

	*loggerAdapter
}

type runState struct {
	mu    sync.RWMutex
	state map[string]any
	usage Usage
}

// NewRunContext constructs a RunContext with empty state.
func NewRunContext(ctx context.Context, runID string, value any, logger logging.Logger) *RunContext {
	if ctx == nil {
		ctx = context.Background()
	}

	return &RunContext{
		Context:       ctx,
		RunID:         runID,
		Value:         value,
		shared:        &runState{state: map[string]any{}},
		loggerAdapter: newLoggerAdapter(logger, "run_id", runID),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// WithContext returns a copy bound to ctx that shares state and usage with rc.
func (rc *RunContext) WithContext(ctx context.Context) *RunContext {
	c := *rc
	c.Context = ctx
	return &c
}

// GetState returns the value stored under k.
func (rc *RunContext) GetState(k string) (any, bool) {
	rc.shared.mu.RLock()
	defer rc.shared.mu.RUnlock()

	v, ok := rc.shared.state[k]

	return v, ok
}

// SetState stores v under k.
func (rc *RunContext) SetState(k string, v any) {
	rc.shared.mu.Lock()
	rc.shared.state[k] = v
	rc.shared.mu.Unlock()
}

// State returns a snapshot of the state map.
func (rc *RunContext) State() map[string]any {
	rc.shared.mu.RLock()
	defer rc.shared.mu.RUnlock()

	return maps.Clone(rc.shared.state)
}

// AddUsage accumulates usage reported by a model call.
func (rc *RunContext) AddUsage(u Usage) {
	rc.shared.mu.Lock()
	rc.shared.usage.Add(u)
	rc.shared.mu.Unlock()
}

// Usage returns the usage accumulated so far.
func (rc *RunContext) Usage() Usage {
	rc.shared.mu.RLock()
	defer rc.shared.mu.RUnlock()

	return rc.shared.usage
}

// ContextValue returns the run's context value as T.
//
//	user, ok := core.ContextValue[*UserData](tc.RunContext())
func ContextValue[T any](rc *RunContext) (T, bool) {
	var zero T
	if rc == nil {
		return zero, false
	}

	v, ok := rc.Value.(T)

	return v, ok
}
