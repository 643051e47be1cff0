// Package model defines the provider‑agnostic abstractions for talking to
// language models inside agentkit.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCall)
//   - Carry per-call tuning (Settings) and structured output (OutputSchema)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (openai, anthropic, gemini sub packages) implement the Model
// interface so the runner stays decoupled from vendor SDKs.
package model
