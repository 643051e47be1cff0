package tool

import (
	"fmt"
	"slices"

	"github.com/hupe1980/agentkit/core"
)

// State manager operations.
const (
	OpGetState  = "get_state"
	OpSetState  = "set_state"
	OpListState = "list_state"
)

// StateManagerTool lets a model read and write the run state shared by all
// tools, guardrails and handoff callbacks of the current run.
type StateManagerTool struct {
	name        string
	description string
	readOnly    bool
}

// NewStateManagerTool creates a state management tool. With readOnly set the
// set_state operation is rejected.
func NewStateManagerTool(readOnly bool) *StateManagerTool {
	desc := "Reads and writes state shared across the current run. " +
		"Supports operations: get_state, set_state, list_state."
	if readOnly {
		desc = "Reads state shared across the current run. Supports operations: get_state, list_state."
	}

	return &StateManagerTool{name: "state_manager", description: desc, readOnly: readOnly}
}

// Name returns the tool identifier.
func (t *StateManagerTool) Name() string { return t.name }

// Description returns the tool description.
func (t *StateManagerTool) Description() string { return t.description }

// Parameters returns the JSON schema for tool parameters.
func (t *StateManagerTool) Parameters() map[string]any {
	ops := []any{OpGetState, OpListState}
	if !t.readOnly {
		ops = []any{OpGetState, OpSetState, OpListState}
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"enum":        ops,
				"description": "The state operation to perform",
			},
			"key": map[string]any{
				"type":        "string",
				"description": "State key for get_state/set_state operations",
			},
			"value": map[string]any{
				"description": "Value for set_state operations (any type)",
			},
		},
		"required": []any{"operation"},
	}
}

// Call dispatches on the operation argument.
func (t *StateManagerTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	operation, ok := args["operation"].(string)
	if !ok {
		return nil, NewToolError(t.name, "operation parameter is required", CodeValidation)
	}

	switch operation {
	case OpGetState:
		return t.getState(toolCtx, args)
	case OpSetState:
		if t.readOnly {
			return nil, NewToolError(t.name, "state is read only", CodeValidation)
		}
		return t.setState(toolCtx, args)
	case OpListState:
		keys := make([]string, 0)
		for k := range toolCtx.RunContext().State() {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		return map[string]any{"keys": keys, "count": len(keys)}, nil
	default:
		return nil, NewToolError(t.name, fmt.Sprintf("unknown operation: %s", operation), CodeValidation)
	}
}

func (t *StateManagerTool) getState(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok || key == "" {
		return nil, NewToolError(t.name, "key parameter is required for get_state operation", CodeValidation)
	}

	value, exists := toolCtx.GetState(key)

	return map[string]any{"key": key, "exists": exists, "value": value}, nil
}

func (t *StateManagerTool) setState(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	key, ok := args["key"].(string)
	if !ok || key == "" {
		return nil, NewToolError(t.name, "key parameter is required for set_state operation", CodeValidation)
	}

	value, ok := args["value"]
	if !ok {
		return nil, NewToolError(t.name, "value parameter is required for set_state operation", CodeValidation)
	}

	toolCtx.SetState(key, value)
	toolCtx.LogDebug("tool.state.set", "key", key)

	return map[string]any{
		"key":     key,
		"value":   value,
		"success": true,
		"message": fmt.Sprintf("State key '%s' set successfully", key),
	}, nil
}
