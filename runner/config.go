package runner

import (
	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/session"
	"github.com/hupe1980/agentkit/tracing"
)

// Defaults applied by DefaultRunConfig.
const (
	DefaultMaxTurns     = 10
	DefaultWorkflowName = "Agent workflow"
)

// RunConfig holds settings that apply to a whole run, across every agent it
// visits.
type RunConfig struct {
	// Model overrides the model of every agent.
	Model model.Model
	// ModelProvider resolves agents that only carry a model name.
	ModelProvider model.Provider
	// ModelSettings is overlaid on each agent's own settings.
	ModelSettings *model.Settings

	// MaxTurns bounds the number of model calls. Zero or less means unlimited.
	MaxTurns int

	// Stream requests streamed model responses internally.
	Stream bool

	// MaxParallelTools caps concurrently executing tools. Zero means no cap.
	MaxParallelTools int

	TracingDisabled           bool
	TraceIncludeSensitiveData bool
	WorkflowName              string
	TraceID                   string
	GroupID                   string
	TraceMetadata             map[string]any
	// TraceProvider receives the run's trace. Nil means tracing.DefaultProvider().
	TraceProvider *tracing.Provider

	// Extra guardrails applied in addition to the agents' own.
	InputGuardrails  []agent.InputGuardrail
	OutputGuardrails []agent.OutputGuardrail

	// HandoffInputFilter applies to handoffs without their own filter.
	HandoffInputFilter agent.HandoffInputFilter

	// Context is handed to tools, guardrails and instructions. It is never
	// sent to the model.
	Context any

	Hooks   Hooks
	Session session.Session
	Logger  logging.Logger
}

// DefaultRunConfig returns the baseline configuration.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		MaxTurns:                  DefaultMaxTurns,
		TraceIncludeSensitiveData: true,
		WorkflowName:              DefaultWorkflowName,
	}
}

func (c *RunConfig) logger() logging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logging.Default()
}

func (c *RunConfig) hooks() Hooks {
	if c.Hooks != nil {
		return c.Hooks
	}
	return NoOpHooks{}
}

// WithModel sets RunConfig.Model.
func WithModel(m model.Model) func(c *RunConfig) {
	return func(c *RunConfig) { c.Model = m }
}

// WithContext sets the run context value.
func WithContext(v any) func(c *RunConfig) {
	return func(c *RunConfig) { c.Context = v }
}

// WithMaxTurns sets RunConfig.MaxTurns.
func WithMaxTurns(n int) func(c *RunConfig) {
	return func(c *RunConfig) { c.MaxTurns = n }
}

// WithSession attaches conversation memory.
func WithSession(s session.Session) func(c *RunConfig) {
	return func(c *RunConfig) { c.Session = s }
}

// WithTracingDisabled turns tracing off for the run.
func WithTracingDisabled() func(c *RunConfig) {
	return func(c *RunConfig) { c.TracingDisabled = true }
}
