package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds a JSON-Schema-like parameter specification (parameters)
//   - Validates model supplied arguments against that schema before execution
//   - Invokes the wrapped function with a *core.ToolContext giving access to the
//     run context value, run state, logging and the function call ID
//   - Normalizes error handling so callers receive *ToolError with consistent codes:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	addTool := tool.NewFunctionTool(
//	  "add",
//	  "Add two integers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "integer"},
//	      "b": map[string]any{"type": "integer"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return int(args["a"].(float64)) + int(args["b"].(float64)), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using
// reflection (util.CreateSchema) while still handing the function a raw map.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn)
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates the provided args against the declared schema then invokes the
// underlying function.
//
// A *ToolError from the function is forwarded with Tool set. A validation
// failure yields CodeValidation and any other error CodeExecution. A
// cancelled context is returned as is without running the function.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	if err := toolCtx.Context().Err(); err != nil {
		return nil, err
	}

	start := time.Now()

	toolCtx.LogDebug("tool.call.start")

	if err := util.ValidateParameters(args, t.parameters); err != nil {
		toolCtx.LogWarn("tool.call.validation_failed", "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
			Err:     err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		toolErr := &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution, Err: err}
		if errors.As(err, &toolErr) && toolErr.Tool == "" {
			toolErr.Tool = t.name
		}

		toolCtx.LogError("tool.call.error", "code", toolErr.Code, "error", toolErr.Message)

		return nil, toolErr
	}

	toolCtx.LogInfo("tool.call.success", "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
