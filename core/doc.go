// Package core provides the foundational domain types and execution contexts
// used by agentkit. It defines:
//
//   - Content and its closed set of parts (text, function calls, function responses)
//   - RunContext / ToolContext (per-run state handed to tools, guardrails, handoffs)
//   - Usage accounting and the per-run TurnLimiter
//   - The error taxonomy raised by the runner (MaxTurnsExceededError, ModelBehaviorError, UserError)
//
// The package intentionally keeps implementation concerns (model adapters,
// agent definitions, the run loop) out of scope so every other package can
// depend on it without cycles.
package core
