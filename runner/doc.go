// Package runner drives agents: it calls the model, executes tools, follows
// handoffs, enforces guardrails and turn limits, and records traces until an
// agent produces its final output.
//
// A run blocks until it finishes:
//
//	result, err := runner.Run(ctx, assistant, "What is the capital of Pakistan?",
//		func(c *runner.RunConfig) { c.Model = m })
//	if err != nil {
//		return err
//	}
//	fmt.Println(result.FinalOutput)
//
// Guardrail tripwires surface as *agent.InputGuardrailTripwireError and
// *agent.OutputGuardrailTripwireError; exceeding MaxTurns as
// *core.MaxTurnsExceededError.
package runner
