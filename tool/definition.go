package tool

import "github.com/hupe1980/agentkit/model"

// ToolDefinition is the model facing declaration of a tool.
type ToolDefinition = model.ToolDefinition

// Definition converts a tool into its model facing declaration. Tools with no
// schema advertise an empty object.
func Definition(t Tool) ToolDefinition {
	params := t.Parameters()
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	return model.NewFunctionTool(t.Name(), t.Description(), params)
}
