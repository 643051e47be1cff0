package runner

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/model"
)

// ItemKind classifies a RunItem.
type ItemKind string

// Item kinds produced by a run.
const (
	ItemMessage       ItemKind = "message_output_item"
	ItemToolCall      ItemKind = "tool_call_item"
	ItemToolOutput    ItemKind = "tool_call_output_item"
	ItemHandoffCall   ItemKind = "handoff_call_item"
	ItemHandoffOutput ItemKind = "handoff_output_item"
)

// RunItem is one thing an agent produced during a run.
type RunItem struct {
	Kind    ItemKind
	Agent   *agent.Agent
	Content core.Content

	// SourceAgent and TargetAgent are set on handoff output items.
	SourceAgent *agent.Agent
	TargetAgent *agent.Agent
}

// Result is the outcome of a run.
type Result struct {
	RunID   string
	TraceID string

	// Input is the input the run started from, including session history.
	Input []core.Content

	NewItems     []RunItem
	RawResponses []model.Response

	// FinalOutput is a string, or the decoded value of the last agent's
	// OutputType.
	FinalOutput any
	LastAgent   *agent.Agent

	InputGuardrailResults  []agent.InputGuardrailResult
	OutputGuardrailResults []agent.OutputGuardrailResult

	Usage core.Usage
}

// ToInputList returns the input followed by every generated item, ready to
// be used as the input of a follow-up run.
func (r *Result) ToInputList() []core.Content {
	out := core.CloneContents(r.Input)
	for _, item := range r.NewItems {
		out = append(out, item.Content)
	}
	return out
}

// FinalOutputText renders the final output as text.
func (r *Result) FinalOutputText() string {
	switch v := r.FinalOutput.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%+v", v)
	}
}

func (r *Result) String() string {
	var b strings.Builder

	b.WriteString("RunResult:\n")

	last := "<none>"
	if r.LastAgent != nil {
		last = r.LastAgent.Name
	}

	fmt.Fprintf(&b, "- Last agent: Agent(name=%q)\n", last)
	fmt.Fprintf(&b, "- Final output (%T):\n", r.FinalOutput)

	for _, line := range strings.Split(r.FinalOutputText(), "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "- %d new item(s)\n", len(r.NewItems))
	fmt.Fprintf(&b, "- %d raw response(s)\n", len(r.RawResponses))
	fmt.Fprintf(&b, "- %d input guardrail result(s)\n", len(r.InputGuardrailResults))
	fmt.Fprintf(&b, "- %d output guardrail result(s)\n", len(r.OutputGuardrailResults))
	fmt.Fprintf(&b, "- Usage: %d request(s), %d input token(s), %d output token(s)\n", r.Usage.Requests, r.Usage.InputTokens, r.Usage.OutputTokens)

	return b.String()
}

// FinalOutputAs returns the final output as T.
//
//	msg, err := runner.FinalOutputAs[Message](result)
func FinalOutputAs[T any](r *Result) (T, error) {
	var zero T

	if r == nil {
		return zero, fmt.Errorf("nil result")
	}

	v, ok := r.FinalOutput.(T)
	if !ok {
		return zero, fmt.Errorf("final output is %T, not %T", r.FinalOutput, zero)
	}

	return v, nil
}
