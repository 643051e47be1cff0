package testutil

import (
	"encoding/json"

	"github.com/hupe1980/agentkit/core"
)

// ContentBuilder provides a fluent helper for constructing contents in tests.
// Example:
//
//	c := NewContentBuilder().Assistant().Text("let me check").Call("c1", "add", map[string]any{"a": 1, "b": 2}).Build()
//
// Chain only the parts you need; the role defaults to user.
type ContentBuilder struct {
	role  string
	parts []core.Part
}

// NewContentBuilder creates a builder for a user content.
func NewContentBuilder() *ContentBuilder { return &ContentBuilder{role: core.RoleUser} }

// Role sets the role (chainable).
func (b *ContentBuilder) Role(r string) *ContentBuilder { b.role = r; return b }

// Assistant switches the role to assistant (chainable).
func (b *ContentBuilder) Assistant() *ContentBuilder { return b.Role(core.RoleAssistant) }

// Text appends a text part (chainable).
func (b *ContentBuilder) Text(t string) *ContentBuilder {
	b.parts = append(b.parts, core.TextPart{Text: t})
	return b
}

// Call appends a function call whose arguments are args encoded as JSON (chainable).
func (b *ContentBuilder) Call(id, name string, args any) *ContentBuilder {
	b.parts = append(b.parts, core.FunctionCallPart{FunctionCall: Call(id, name, args)})
	return b
}

// Response appends a function response (chainable). The role becomes tool.
func (b *ContentBuilder) Response(id, name string, resp any) *ContentBuilder {
	b.role = core.RoleTool
	b.parts = append(b.parts, core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: id, Name: name, Response: resp}})
	return b
}

// Build finalizes the content.
func (b *ContentBuilder) Build() core.Content {
	parts := make([]core.Part, len(b.parts))
	copy(parts, b.parts)
	return core.Content{Role: b.role, Parts: parts}
}

// Call builds a function call with args marshalled to JSON. A string args is
// used verbatim.
func Call(id, name string, args any) core.FunctionCall {
	var raw string

	switch v := args.(type) {
	case nil:
		raw = "{}"
	case string:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		raw = string(b)
	}

	return core.FunctionCall{ID: id, Name: name, Arguments: raw}
}
