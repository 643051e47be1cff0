package runner

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/tracing"
)

// runInputGuardrails evaluates guardrails concurrently. Results keep the
// guardrail order; the first triggered tripwire (in that order) becomes the
// returned error.
func runInputGuardrails(rc *core.RunContext, a *agent.Agent, guardrails []agent.InputGuardrail, input []core.Content) ([]agent.InputGuardrailResult, error) {
	if len(guardrails) == 0 {
		return nil, nil
	}

	results := make([]agent.InputGuardrailResult, len(guardrails))
	errs := make([]error, len(guardrails))

	var wg sync.WaitGroup

	for i, g := range guardrails {
		wg.Add(1)

		go func(idx int, g agent.InputGuardrail) {
			defer wg.Done()

			spanCtx, span := tracing.GuardrailSpan(rc.Context, g.DisplayName())
			defer span.Finish()

			defer func() {
				if r := recover(); r != nil {
					errs[idx] = fmt.Errorf("input guardrail %s: %w", g.DisplayName(), panicError(r))
					span.SetError(errs[idx].Error(), nil)
					rc.LogError("runner.guardrail.panic", "guardrail", g.DisplayName(), "recover", r, "stack", string(debug.Stack()))
				}
			}()

			res, err := g.Run(rc.WithContext(spanCtx), a, core.CloneContents(input))
			if err != nil {
				span.SetError(err.Error(), nil)
			}

			span.Data().(*tracing.GuardrailSpanData).Triggered = res.Output.TripwireTriggered
			results[idx], errs[idx] = res, err
		}(i, g)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for _, res := range results {
		if res.Output.TripwireTriggered {
			rc.LogWarn("runner.guardrail.input.tripwire", "agent", a.Name, "guardrail", res.Guardrail.DisplayName())
			return results, &agent.InputGuardrailTripwireError{Result: res}
		}
	}

	return results, nil
}

// runOutputGuardrails mirrors runInputGuardrails for the final output.
func runOutputGuardrails(rc *core.RunContext, a *agent.Agent, guardrails []agent.OutputGuardrail, output any) ([]agent.OutputGuardrailResult, error) {
	if len(guardrails) == 0 {
		return nil, nil
	}

	results := make([]agent.OutputGuardrailResult, len(guardrails))
	errs := make([]error, len(guardrails))

	var wg sync.WaitGroup

	for i, g := range guardrails {
		wg.Add(1)

		go func(idx int, g agent.OutputGuardrail) {
			defer wg.Done()

			spanCtx, span := tracing.GuardrailSpan(rc.Context, g.DisplayName())
			defer span.Finish()

			defer func() {
				if r := recover(); r != nil {
					errs[idx] = fmt.Errorf("output guardrail %s: %w", g.DisplayName(), panicError(r))
					span.SetError(errs[idx].Error(), nil)
					rc.LogError("runner.guardrail.panic", "guardrail", g.DisplayName(), "recover", r, "stack", string(debug.Stack()))
				}
			}()

			res, err := g.Run(rc.WithContext(spanCtx), a, output)
			if err != nil {
				span.SetError(err.Error(), nil)
			}

			span.Data().(*tracing.GuardrailSpanData).Triggered = res.Output.TripwireTriggered
			results[idx], errs[idx] = res, err
		}(i, g)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	for _, res := range results {
		if res.Output.TripwireTriggered {
			rc.LogWarn("runner.guardrail.output.tripwire", "agent", a.Name, "guardrail", res.Guardrail.DisplayName())
			return results, &agent.OutputGuardrailTripwireError{Result: res}
		}
	}

	return results, nil
}
