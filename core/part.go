package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Conversation roles used in Content.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Part represents a polymorphic segment of role-based content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text     string         // Plain UTF-8 text
	Metadata map[string]any // Optional producer-provided metadata
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// DataPart is a structured data segment, rendered to models as JSON.
type DataPart struct {
	Data     map[string]any // Structured key/value payload
	Metadata map[string]any
}

// isPart implements the Part interface for DataPart.
func (DataPart) isPart() {}

// FunctionCall describes a tool/function invocation request.
type FunctionCall struct {
	ID        string `json:"id,omitempty"`        // Provider supplied call id
	Name      string `json:"name"`                // Tool / function name
	Arguments string `json:"arguments,omitempty"` // Serialized argument payload (JSON)
}

// FunctionCallPart wraps a FunctionCall as a content part.
type FunctionCallPart struct {
	FunctionCall FunctionCall
	Metadata     map[string]any
}

// isPart implements the Part interface for FunctionCallPart.
func (FunctionCallPart) isPart() {}

// FunctionResponse describes the outcome of a function call.
type FunctionResponse struct {
	ID       string `json:"id,omitempty"`       // Matches originating FunctionCall ID
	Name     string `json:"name"`               // Function name
	Response any    `json:"response,omitempty"` // Successful result (any shape)
	Error    string `json:"error,omitempty"`    // Populated on failure
}

// Output renders the response the way it is shown to a model: the error text
// on failure, strings verbatim, everything else as JSON.
func (r FunctionResponse) Output() string {
	if r.Error != "" {
		return r.Error
	}
	switch v := r.Response.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(r.Response)
	if err != nil {
		return fmt.Sprintf("%v", r.Response)
	}
	return string(b)
}

// FunctionResponsePart wraps a FunctionResponse as a content part.
type FunctionResponsePart struct {
	FunctionResponse FunctionResponse
	Metadata         map[string]any
}

// isPart implements the Part interface for FunctionResponsePart.
func (FunctionResponsePart) isPart() {}

// Content holds role + ordered parts.
type Content struct {
	Role  string `json:"role,omitempty"` // Conversation role (user, assistant, tool, system)
	Parts []Part `json:"parts"`          // Ordered heterogeneous parts
}

// NewUserContent wraps text in a user role Content.
func NewUserContent(text string) Content {
	return Content{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

// NewAssistantContent wraps text in an assistant role Content.
func NewAssistantContent(text string) Content {
	return Content{Role: RoleAssistant, Parts: []Part{TextPart{Text: text}}}
}

// NewFunctionCallContent builds an assistant Content holding the given calls.
func NewFunctionCallContent(calls ...FunctionCall) Content {
	parts := make([]Part, 0, len(calls))
	for _, fc := range calls {
		parts = append(parts, FunctionCallPart{FunctionCall: fc})
	}
	return Content{Role: RoleAssistant, Parts: parts}
}

// NewFunctionResponseContent builds a tool role Content holding one response.
func NewFunctionResponseContent(resp FunctionResponse) Content {
	return Content{Role: RoleTool, Parts: []Part{FunctionResponsePart{FunctionResponse: resp}}}
}

// Text concatenates all text parts.
func (c Content) Text() string {
	var b strings.Builder
	for _, p := range c.Parts {
		switch tp := p.(type) {
		case TextPart:
			b.WriteString(tp.Text)
		case DataPart:
			if data, err := json.Marshal(tp.Data); err == nil {
				b.Write(data)
			}
		}
	}
	return b.String()
}

// FunctionCalls returns the function calls carried by the content in order.
func (c Content) FunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range c.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// FunctionResponses returns the function responses carried by the content in order.
func (c Content) FunctionResponses() []FunctionResponse {
	var resps []FunctionResponse
	for _, p := range c.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			resps = append(resps, fr.FunctionResponse)
		}
	}
	return resps
}

// HasFunctionParts reports whether the content carries any call or response part.
func (c Content) HasFunctionParts() bool {
	for _, p := range c.Parts {
		switch p.(type) {
		case FunctionCallPart, FunctionResponsePart:
			return true
		}
	}
	return false
}

// CloneContents returns a copy of the slice with copied part slices.
func CloneContents(in []Content) []Content {
	if in == nil {
		return nil
	}
	out := make([]Content, len(in))
	for i, c := range in {
		parts := make([]Part, len(c.Parts))
		copy(parts, c.Parts)
		out[i] = Content{Role: c.Role, Parts: parts}
	}
	return out
}
