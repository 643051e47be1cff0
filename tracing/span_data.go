package tracing

// Span types.
const (
	SpanTypeAgent      = "agent"
	SpanTypeGeneration = "generation"
	SpanTypeFunction   = "function"
	SpanTypeHandoff    = "handoff"
	SpanTypeGuardrail  = "guardrail"
	SpanTypeCustom     = "custom"
)

// SpanData is the typed payload of a span.
type SpanData interface {
	Type() string
	Export() map[string]any
}

// AgentSpanData describes one agent's stretch of a run.
type AgentSpanData struct {
	Name       string
	Handoffs   []string
	Tools      []string
	OutputType string
}

// Type implements SpanData.
func (d *AgentSpanData) Type() string { return SpanTypeAgent }

// Export implements SpanData.
func (d *AgentSpanData) Export() map[string]any {
	return map[string]any{
		"type":        SpanTypeAgent,
		"name":        d.Name,
		"handoffs":    d.Handoffs,
		"tools":       d.Tools,
		"output_type": d.OutputType,
	}
}

// GenerationSpanData describes a model call. Input and Output stay empty
// when sensitive data is excluded.
type GenerationSpanData struct {
	Model       string
	ModelConfig map[string]any
	Input       any
	Output      any
	Usage       map[string]int
}

// Type implements SpanData.
func (d *GenerationSpanData) Type() string { return SpanTypeGeneration }

// Export implements SpanData.
func (d *GenerationSpanData) Export() map[string]any {
	return map[string]any{
		"type":         SpanTypeGeneration,
		"model":        d.Model,
		"model_config": d.ModelConfig,
		"input":        d.Input,
		"output":       d.Output,
		"usage":        d.Usage,
	}
}

// FunctionSpanData describes a tool call.
type FunctionSpanData struct {
	Name   string
	Input  string
	Output string
}

// Type implements SpanData.
func (d *FunctionSpanData) Type() string { return SpanTypeFunction }

// Export implements SpanData.
func (d *FunctionSpanData) Export() map[string]any {
	return map[string]any{
		"type":   SpanTypeFunction,
		"name":   d.Name,
		"input":  d.Input,
		"output": d.Output,
	}
}

// HandoffSpanData describes a transfer of control between agents.
type HandoffSpanData struct {
	FromAgent string
	ToAgent   string
}

// Type implements SpanData.
func (d *HandoffSpanData) Type() string { return SpanTypeHandoff }

// Export implements SpanData.
func (d *HandoffSpanData) Export() map[string]any {
	return map[string]any{
		"type":       SpanTypeHandoff,
		"from_agent": d.FromAgent,
		"to_agent":   d.ToAgent,
	}
}

// GuardrailSpanData describes a guardrail evaluation.
type GuardrailSpanData struct {
	Name      string
	Triggered bool
}

// Type implements SpanData.
func (d *GuardrailSpanData) Type() string { return SpanTypeGuardrail }

// Export implements SpanData.
func (d *GuardrailSpanData) Export() map[string]any {
	return map[string]any{
		"type":      SpanTypeGuardrail,
		"name":      d.Name,
		"triggered": d.Triggered,
	}
}

// CustomSpanData carries arbitrary user data.
type CustomSpanData struct {
	Name string
	Data map[string]any
}

// Type implements SpanData.
func (d *CustomSpanData) Type() string { return SpanTypeCustom }

// Export implements SpanData.
func (d *CustomSpanData) Export() map[string]any {
	return map[string]any{
		"type": SpanTypeCustom,
		"name": d.Name,
		"data": d.Data,
	}
}
