package testutil

import (
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/model"
)

// ResponseBuilder constructs scripted model responses.
//
//	resp := NewResponseBuilder().Call("c1", "add", map[string]any{"a": 1, "b": 2}).Usage(12, 3).Build()
type ResponseBuilder struct {
	content *ContentBuilder
	finish  string
	usage   *model.TokenUsage
	id      string
}

// NewResponseBuilder creates a builder for an assistant response.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{content: NewContentBuilder().Assistant()}
}

// ID sets the response ID (chainable).
func (b *ResponseBuilder) ID(id string) *ResponseBuilder { b.id = id; return b }

// Text appends text (chainable).
func (b *ResponseBuilder) Text(t string) *ResponseBuilder { b.content.Text(t); return b }

// Call appends a function call (chainable).
func (b *ResponseBuilder) Call(id, name string, args any) *ResponseBuilder {
	b.content.Call(id, name, args)
	return b
}

// Finish overrides the finish reason (chainable).
func (b *ResponseBuilder) Finish(reason string) *ResponseBuilder { b.finish = reason; return b }

// Usage sets token usage (chainable).
func (b *ResponseBuilder) Usage(prompt, completion int) *ResponseBuilder {
	b.usage = &model.TokenUsage{PromptTokens: prompt, CompletionTokens: completion, TotalTokens: prompt + completion}
	return b
}

// Build finalizes the response. The finish reason defaults to tool_calls
// when calls are present and stop otherwise.
func (b *ResponseBuilder) Build() model.Response {
	content := b.content.Build()

	finish := b.finish
	if finish == "" {
		finish = "stop"
		if len(content.FunctionCalls()) > 0 {
			finish = "tool_calls"
		}
	}

	return model.Response{ID: b.id, Content: content, FinishReason: finish, Usage: b.usage}
}

// TextResponse is shorthand for a final text answer.
func TextResponse(text string) model.Response {
	return NewResponseBuilder().Text(text).Usage(10, 5).Build()
}

// CallResponse is shorthand for a turn requesting the given calls.
func CallResponse(calls ...core.FunctionCall) model.Response {
	b := NewResponseBuilder().Usage(10, 5)
	for _, c := range calls {
		b.content.parts = append(b.content.parts, core.FunctionCallPart{FunctionCall: c})
	}
	return b.Build()
}
