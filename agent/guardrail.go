package agent

import (
	"fmt"

	"github.com/hupe1980/agentkit/core"
)

// GuardrailOutput is what a guardrail function reports. OutputInfo is free
// form detail for the caller.
type GuardrailOutput struct {
	OutputInfo        any
	TripwireTriggered bool
}

// InputGuardrail checks the input of the starting agent before (and while)
// the first model call runs.
type InputGuardrail struct {
	Name string
	Func func(rc *core.RunContext, a *Agent, input []core.Content) (GuardrailOutput, error)
}

// InputGuardrailResult is the outcome of one input guardrail.
type InputGuardrailResult struct {
	Guardrail InputGuardrail
	Agent     *Agent
	Output    GuardrailOutput
}

// DisplayName returns Name or a fallback.
func (g InputGuardrail) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return "input_guardrail"
}

// Run evaluates the guardrail.
func (g InputGuardrail) Run(rc *core.RunContext, a *Agent, input []core.Content) (InputGuardrailResult, error) {
	out, err := g.Func(rc, a, input)
	if err != nil {
		return InputGuardrailResult{}, fmt.Errorf("input guardrail %s: %w", g.DisplayName(), err)
	}

	return InputGuardrailResult{Guardrail: g, Agent: a, Output: out}, nil
}

// OutputGuardrail checks the final output of the last agent.
type OutputGuardrail struct {
	Name string
	Func func(rc *core.RunContext, a *Agent, output any) (GuardrailOutput, error)
}

// OutputGuardrailResult is the outcome of one output guardrail.
type OutputGuardrailResult struct {
	Guardrail   OutputGuardrail
	Agent       *Agent
	AgentOutput any
	Output      GuardrailOutput
}

// DisplayName returns Name or a fallback.
func (g OutputGuardrail) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	return "output_guardrail"
}

// Run evaluates the guardrail.
func (g OutputGuardrail) Run(rc *core.RunContext, a *Agent, output any) (OutputGuardrailResult, error) {
	out, err := g.Func(rc, a, output)
	if err != nil {
		return OutputGuardrailResult{}, fmt.Errorf("output guardrail %s: %w", g.DisplayName(), err)
	}

	return OutputGuardrailResult{Guardrail: g, Agent: a, AgentOutput: output, Output: out}, nil
}

// InputGuardrailTripwireError is returned by a run whose input guardrail fired.
type InputGuardrailTripwireError struct {
	Result InputGuardrailResult
}

func (e *InputGuardrailTripwireError) Error() string {
	return fmt.Sprintf("input guardrail %s triggered tripwire", e.Result.Guardrail.DisplayName())
}

// Is reports whether target is core.ErrAgentsException.
func (e *InputGuardrailTripwireError) Is(target error) bool { return target == core.ErrAgentsException }

// OutputGuardrailTripwireError is returned by a run whose output guardrail fired.
type OutputGuardrailTripwireError struct {
	Result OutputGuardrailResult
}

func (e *OutputGuardrailTripwireError) Error() string {
	return fmt.Sprintf("output guardrail %s triggered tripwire", e.Result.Guardrail.DisplayName())
}

// Is reports whether target is core.ErrAgentsException.
func (e *OutputGuardrailTripwireError) Is(target error) bool { return target == core.ErrAgentsException }
