// Package tracing records what happens during agent runs as traces made of
// nested spans (agent turns, model generations, tool calls, handoffs,
// guardrails and user defined custom spans).
//
// A trace is opened with NewTrace and carried in a context.Context; spans
// started from that context attach to it. Outside of a trace, span helpers
// return no-op spans so instrumented code never has to check.
//
//	ctx, tr := tracing.NewTrace(ctx, "Math workflow")
//	defer tr.Finish()
//
//	ctx, span := tracing.CustomSpan(ctx, "English span", nil)
//	defer span.Finish()
//
// Finished traces and spans are handed to Processors registered on a
// Provider (LogProcessor, MemoryProcessor, JSONLExporter or your own).
package tracing
