package core

import (
	"context"

	"github.com/hupe1980/agentkit/logging"
)

// ToolContext provides the surface a tool implementation sees for a single
// invocation: the run context plus the identity of the call being served.
type ToolContext struct {
	runCtx         *RunContext
	functionCallID string
	toolName       string

	*loggerAdapter
}

// NewToolContext constructs a tool context bound to a parent RunContext.
func NewToolContext(runCtx *RunContext, functionCallID, toolName string) *ToolContext {
	return &ToolContext{
		runCtx:         runCtx,
		functionCallID: functionCallID,
		toolName:       toolName,
		loggerAdapter:  newLoggerAdapter(runCtx.Logger(), "run_id", runCtx.RunID, "tool", toolName, "function_call_id", functionCallID),
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.runCtx.Context }

// RunContext returns the parent run context.
func (tc *ToolContext) RunContext() *RunContext { return tc.runCtx }

// RunID returns the run ID associated with the tool invocation.
func (tc *ToolContext) RunID() string { return tc.runCtx.RunID }

// Value returns the caller supplied run context value.
func (tc *ToolContext) Value() any { return tc.runCtx.Value }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.loggerAdapter.Logger() }

// FunctionCallID returns the function call ID associated with the tool invocation.
func (tc *ToolContext) FunctionCallID() string { return tc.functionCallID }

// ToolName returns the name of the tool being invoked.
func (tc *ToolContext) ToolName() string { return tc.toolName }

// GetState retrieves the run state associated with the given key.
func (tc *ToolContext) GetState(k string) (any, bool) { return tc.runCtx.GetState(k) }

// SetState records a run state mutation visible to later tools and turns.
func (tc *ToolContext) SetState(k string, v any) {
	tc.runCtx.SetState(k, v)
	tc.LogDebug("tool.state.set", "key", k)
}
