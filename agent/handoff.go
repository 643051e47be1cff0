package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
	"github.com/hupe1980/agentkit/model"
)

// HandoffInputData is the conversation handed to the next agent. A filter may
// rewrite any of the three segments.
type HandoffInputData struct {
	// InputHistory is the run input before any model turn.
	InputHistory []core.Content
	// PreHandoffItems were generated by earlier turns.
	PreHandoffItems []core.Content
	// NewItems were generated by the turn that triggered the handoff,
	// including the handoff call and its output.
	NewItems []core.Content
}

// All concatenates the segments in conversation order.
func (d HandoffInputData) All() []core.Content {
	out := make([]core.Content, 0, len(d.InputHistory)+len(d.PreHandoffItems)+len(d.NewItems))
	out = append(out, d.InputHistory...)
	out = append(out, d.PreHandoffItems...)
	return append(out, d.NewItems...)
}

// HandoffInputFilter rewrites the conversation passed to the next agent.
type HandoffInputFilter func(HandoffInputData) HandoffInputData

// HandoffInputError reports arguments the model sent for a handoff that do
// not match its input type. The runner relays it to the model.
type HandoffInputError struct {
	ToolName string
	Err      error
}

func (e *HandoffInputError) Error() string {
	return fmt.Sprintf("invalid input for handoff %s: %v", e.ToolName, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *HandoffInputError) Unwrap() error { return e.Err }

// Handoff lets one agent transfer the conversation to another. It is exposed
// to the model as a tool.
type Handoff struct {
	Agent *Agent

	// ToolName overrides the default transfer_to_<agent> tool name.
	ToolName string

	// ToolDescription overrides the default description.
	ToolDescription string

	// InputSchema describes the arguments the model must send. Nil means none.
	InputSchema map[string]any

	// OnHandoff runs when the handoff is taken. input holds the raw arguments.
	OnHandoff func(rc *core.RunContext, input json.RawMessage) error

	// InputFilter rewrites the history the next agent sees.
	InputFilter HandoffInputFilter

	// IsEnabled gates whether the handoff is offered. Nil means always.
	IsEnabled func(rc *core.RunContext, from *Agent) bool
}

// HandoffTo builds a handoff to target.
func HandoffTo(target *Agent, optFns ...func(h *Handoff)) *Handoff {
	h := &Handoff{Agent: target}

	for _, fn := range optFns {
		fn(h)
	}

	return h
}

// AgentName returns the target agent's name.
func (h *Handoff) AgentName() string {
	if h.Agent == nil {
		return ""
	}
	return h.Agent.Name
}

// Name returns the tool name presented to the model.
func (h *Handoff) Name() string {
	if h.ToolName != "" {
		return h.ToolName
	}
	return DefaultHandoffToolName(h.AgentName())
}

// Description returns the tool description presented to the model.
func (h *Handoff) Description() string {
	if h.ToolDescription != "" {
		return h.ToolDescription
	}

	desc := ""
	if h.Agent != nil {
		desc = h.Agent.HandoffDescription
	}

	return strings.TrimSpace(fmt.Sprintf("Handoff to the %s agent to handle the request. %s", h.AgentName(), desc))
}

// Definition returns the model facing tool declaration.
func (h *Handoff) Definition() model.ToolDefinition {
	params := h.InputSchema
	if params == nil {
		params = map[string]any{
			"type":                 "object",
			"properties":           map[string]any{},
			"additionalProperties": false,
		}
	}

	return model.NewFunctionTool(h.Name(), h.Description(), params)
}

// Enabled reports whether the handoff is offered when from is active.
func (h *Handoff) Enabled(rc *core.RunContext, from *Agent) bool {
	if h.IsEnabled == nil {
		return true
	}
	return h.IsEnabled(rc, from)
}

// Invoke validates the model supplied arguments and runs OnHandoff. Argument
// problems are reported as *HandoffInputError.
func (h *Handoff) Invoke(rc *core.RunContext, arguments string) error {
	raw := json.RawMessage(strings.TrimSpace(arguments))
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	if h.InputSchema != nil {
		args, err := util.ParseArguments(string(raw))
		if err != nil {
			return &HandoffInputError{ToolName: h.Name(), Err: err}
		}

		if err := util.ValidateParameters(args, h.InputSchema); err != nil {
			return &HandoffInputError{ToolName: h.Name(), Err: err}
		}
	}

	if h.OnHandoff == nil {
		return nil
	}

	return h.OnHandoff(rc, raw)
}

// WithToolName overrides the handoff tool name.
func WithToolName(name string) func(h *Handoff) {
	return func(h *Handoff) { h.ToolName = name }
}

// WithToolDescription overrides the handoff tool description.
func WithToolDescription(desc string) func(h *Handoff) {
	return func(h *Handoff) { h.ToolDescription = desc }
}

// WithInputFilter sets the handoff's history filter.
func WithInputFilter(f HandoffInputFilter) func(h *Handoff) {
	return func(h *Handoff) { h.InputFilter = f }
}

// WithIsEnabled gates the handoff.
func WithIsEnabled(fn func(rc *core.RunContext, from *Agent) bool) func(h *Handoff) {
	return func(h *Handoff) { h.IsEnabled = fn }
}

// OnHandoff sets a callback taking no input.
func OnHandoff(fn func(rc *core.RunContext) error) func(h *Handoff) {
	return func(h *Handoff) {
		h.OnHandoff = func(rc *core.RunContext, _ json.RawMessage) error { return fn(rc) }
	}
}

// OnHandoffWithInput sets a callback receiving arguments decoded into T. The
// input schema is derived from T.
//
//	type EscalationData struct {
//		Name         string `json:"name"`
//		Instructions string `json:"instructions"`
//	}
//
//	agent.HandoffTo(urdu, agent.OnHandoffWithInput(func(rc *core.RunContext, in EscalationData) error {
//		fmt.Println("escalating for", in.Name)
//		return nil
//	}))
func OnHandoffWithInput[T any](fn func(rc *core.RunContext, input T) error) func(h *Handoff) {
	return func(h *Handoff) {
		h.InputSchema = util.CreateSchema(reflect.TypeOf((*T)(nil)).Elem())
		h.OnHandoff = func(rc *core.RunContext, raw json.RawMessage) error {
			var in T
			if err := json.Unmarshal(raw, &in); err != nil {
				return &HandoffInputError{ToolName: h.Name(), Err: err}
			}
			return fn(rc, in)
		}
	}
}

// DefaultHandoffToolName returns transfer_to_<name> with name in snake case.
// Only ASCII letters and digits survive; everything else becomes '_' so the
// result is a valid function name for every provider.
func DefaultHandoffToolName(agentName string) string {
	var b strings.Builder

	for _, r := range strings.TrimSpace(agentName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}

	return "transfer_to_" + b.String()
}

// HandoffOutput is the tool output recorded when a handoff is taken.
func HandoffOutput(target string) map[string]any {
	return map[string]any{"assistant": target}
}
