// Package handofffilter holds ready made agent.HandoffInputFilter functions.
package handofffilter

import (
	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
)

// RemoveAllTools drops every tool call and tool output from the history the
// next agent receives. Contents mixing text with calls keep their text.
func RemoveAllTools(data agent.HandoffInputData) agent.HandoffInputData {
	return agent.HandoffInputData{
		InputHistory:    stripTools(data.InputHistory),
		PreHandoffItems: stripTools(data.PreHandoffItems),
		NewItems:        stripTools(data.NewItems),
	}
}

// KeepLast keeps only the last n contents of the combined history. A
// negative n keeps nothing.
func KeepLast(n int) agent.HandoffInputFilter {
	n = max(n, 0)

	return func(data agent.HandoffInputData) agent.HandoffInputData {
		all := data.All()
		if len(all) > n {
			all = all[len(all)-n:]
		}
		return agent.HandoffInputData{InputHistory: all}
	}
}

func stripTools(in []core.Content) []core.Content {
	out := make([]core.Content, 0, len(in))

	for _, c := range in {
		if c.Role == core.RoleTool {
			continue
		}

		if !c.HasFunctionParts() {
			out = append(out, c)
			continue
		}

		parts := make([]core.Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			switch p.(type) {
			case core.FunctionCallPart, core.FunctionResponsePart:
			default:
				parts = append(parts, p)
			}
		}

		if len(parts) > 0 {
			out = append(out, core.Content{Role: c.Role, Parts: parts})
		}
	}

	return out
}
