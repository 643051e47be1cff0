// Package agent declares agents: a name, instructions, a model, the tools and
// handoffs it may use, guardrails around its input and output and an optional
// structured output type. Agents are plain configuration; the runner package
// executes them.
//
//	math := agent.New("Math Agent",
//		agent.WithInstructions("You solve math problems."),
//		agent.WithTools(addTool),
//	)
//
//	triage := agent.New("Teacher",
//		agent.WithInstructions("Route each question to the right specialist."),
//		agent.WithHandoffAgents(math),
//	)
package agent
