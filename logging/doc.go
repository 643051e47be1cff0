// Package logging provides a minimal logging interface and adapters for agentkit.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the runner, tools and tracing processors use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - KitLogger wrapping Go's structured logging with component/run context
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - A replaceable package default (Default, SetDefault, EnableVerboseStdoutLogging)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	result, err := runner.Run(ctx, assistant, "hi", func(c *runner.RunConfig) { c.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
