package model

import (
	"context"
	"errors"

	"github.com/hupe1980/agentkit/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// NewFunctionTool is a shorthand for a function typed ToolDefinition.
func NewFunctionTool(name, description string, parameters map[string]any) ToolDefinition {
	return ToolDefinition{
		Type:     "function",
		Function: FunctionDefinition{Name: name, Description: description, Parameters: parameters},
	}
}

// OutputSchema requests structured JSON output matching Schema.
type OutputSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Schema      map[string]any `json:"schema"`
	Strict      bool           `json:"strict"`
}

// Request captures the normalized model input produced by the runner.
type Request struct {
	Instructions string           `json:"instructions"` // System prompt for the model
	Contents     []core.Content   `json:"contents"`     // Conversation converted to provider messages
	Tools        []ToolDefinition `json:"tools,omitempty"`
	Settings     Settings         `json:"settings"`
	OutputSchema *OutputSchema    `json:"output_schema,omitempty"`
	Stream       bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToUsage converts provider token counts into run usage for one request.
func (u *TokenUsage) ToUsage() core.Usage {
	if u == nil {
		return core.Usage{Requests: 1}
	}

	total := u.TotalTokens
	if total == 0 {
		total = u.PromptTokens + u.CompletionTokens
	}

	return core.Usage{
		Requests:     1,
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  total,
	}
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "gemini", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the runner to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrNoResponse is returned by Collect when a model closes its stream without
// a final response.
var ErrNoResponse = errors.New("model returned no final response")

// Collect drains a Generate call and returns the final (non partial) response.
func Collect(ctx context.Context, m Model, req Request) (*Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var final *Response

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !r.Partial {
				rr := r
				final = &rr
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if final == nil {
		return nil, ErrNoResponse
	}

	return final, nil
}

// Send delivers r on out unless ctx is done first. It reports whether r was
// delivered; providers stop producing once it returns false.
func Send(ctx context.Context, out chan<- Response, r Response) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// NormalizeContents merges consecutive contents of the same role so that an
// assistant turn holding several function calls becomes one message and the
// matching tool responses follow it. Providers that require strictly
// alternating roles rely on this.
func NormalizeContents(contents []core.Content) []core.Content {
	out := make([]core.Content, 0, len(contents))

	for _, c := range contents {
		if len(c.Parts) == 0 {
			continue
		}

		if n := len(out); n > 0 && out[n-1].Role == c.Role && c.Role != core.RoleUser {
			parts := make([]core.Part, 0, len(out[n-1].Parts)+len(c.Parts))
			parts = append(parts, out[n-1].Parts...)
			parts = append(parts, c.Parts...)
			out[n-1] = core.Content{Role: c.Role, Parts: parts}

			continue
		}

		out = append(out, c)
	}

	return out
}
