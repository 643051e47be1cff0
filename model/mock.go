package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentkit/core"
)

type mockStep struct {
	resp Response
	err  error
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Scripted steps are consumed in order; once the script is exhausted the
// model answers with a canned response for the last user text.
type MockModel struct {
	info Info

	mu        sync.Mutex
	script    []mockStep
	responses map[string]string
	requests  []Request
	calls     int
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends a fully specified response to the script.
func (m *MockModel) Enqueue(resp Response) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockStep{resp: resp})
	return m
}

// AddTextResponse scripts a final assistant text answer.
func (m *MockModel) AddTextResponse(text string) *MockModel {
	return m.Enqueue(Response{
		Content:      core.NewAssistantContent(text),
		FinishReason: "stop",
		Usage:        &TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	})
}

// AddToolCallResponse scripts an assistant turn requesting the given calls.
// Calls without an ID get a deterministic one.
func (m *MockModel) AddToolCallResponse(calls ...core.FunctionCall) *MockModel {
	m.mu.Lock()
	n := len(m.script)
	m.mu.Unlock()

	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = fmt.Sprintf("call_%d_%d", n, i)
		}
	}

	return m.Enqueue(Response{
		Content:      core.NewFunctionCallContent(calls...),
		FinishReason: "tool_calls",
		Usage:        &TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	})
}

// AddError scripts a failing call.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockStep{err: err})
	return m
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns the number of Generate invocations.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockModel) next(req Request) (mockStep, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	m.requests = append(m.requests, req)

	if len(m.script) == 0 {
		return mockStep{}, false
	}

	step := m.script[0]
	m.script = m.script[1:]

	return step, true
}

func (m *MockModel) fallback(req Request) (Response, error) {
	if len(req.Contents) == 0 {
		return Response{}, fmt.Errorf("no contents provided")
	}

	var inputText string
	for i := len(req.Contents) - 1; i >= 0; i-- {
		if req.Contents[i].Role == core.RoleUser {
			inputText = req.Contents[i].Text()
			break
		}
	}

	m.mu.Lock()
	full := m.responses[inputText]
	m.mu.Unlock()

	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}

	return Response{Content: core.NewAssistantContent(full), FinishReason: "stop"}, nil
}

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		step, ok := m.next(req)
		if !ok {
			resp, err := m.fallback(req)
			step = mockStep{resp: resp, err: err}
		}

		if step.err != nil {
			errCh <- step.err
			return
		}

		full := step.resp
		full.Partial = false

		if req.Stream {
			for _, r := range full.Content.Text() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.NewAssistantContent(string(r)),
				}:
				}
			}
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- full:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
