package agent

import (
	"slices"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/tool"
)

// Agent is a model backed assistant configuration. The zero value of every
// optional field is usable; construct agents with New.
type Agent struct {
	// Name identifies the agent in handoffs, traces and logs.
	Name string

	// HandoffDescription tells other agents when to hand off to this one.
	HandoffDescription string

	// Instructions become the system prompt.
	Instructions Instruction

	// Model drives the agent. When nil the runner resolves ModelName through
	// its model provider.
	Model     model.Model
	ModelName string

	// ModelSettings tunes every call the agent makes.
	ModelSettings model.Settings

	Tools    []tool.Tool
	Handoffs []*Handoff

	InputGuardrails  []InputGuardrail
	OutputGuardrails []OutputGuardrail

	// OutputType requests structured final output. Nil means plain text.
	OutputType *OutputType

	// ResetToolChoice restores tool choice "auto" after a turn that used tools
	// so a forced tool choice cannot loop forever.
	ResetToolChoice bool
}

// Options configures New and Clone.
type Options struct {
	HandoffDescription string
	Instructions       Instruction
	Model              model.Model
	ModelName          string
	ModelSettings      model.Settings
	Tools              []tool.Tool
	Handoffs           []*Handoff
	InputGuardrails    []InputGuardrail
	OutputGuardrails   []OutputGuardrail
	OutputType         *OutputType
	ResetToolChoice    bool
}

// New creates an agent. ResetToolChoice defaults to true.
func New(name string, optFns ...func(o *Options)) *Agent {
	opts := Options{ResetToolChoice: true}

	for _, fn := range optFns {
		fn(&opts)
	}

	return fromOptions(name, opts)
}

func fromOptions(name string, opts Options) *Agent {
	return &Agent{
		Name:               name,
		HandoffDescription: opts.HandoffDescription,
		Instructions:       opts.Instructions,
		Model:              opts.Model,
		ModelName:          opts.ModelName,
		ModelSettings:      opts.ModelSettings,
		Tools:              opts.Tools,
		Handoffs:           opts.Handoffs,
		InputGuardrails:    opts.InputGuardrails,
		OutputGuardrails:   opts.OutputGuardrails,
		OutputType:         opts.OutputType,
		ResetToolChoice:    opts.ResetToolChoice,
	}
}

// Clone returns a copy of the agent with optFns applied on top. Slices are
// copied so appending to the clone leaves the original untouched.
func (a *Agent) Clone(optFns ...func(o *Options)) *Agent {
	opts := Options{
		HandoffDescription: a.HandoffDescription,
		Instructions:       a.Instructions,
		Model:              a.Model,
		ModelName:          a.ModelName,
		ModelSettings:      a.ModelSettings,
		Tools:              slices.Clone(a.Tools),
		Handoffs:           slices.Clone(a.Handoffs),
		InputGuardrails:    slices.Clone(a.InputGuardrails),
		OutputGuardrails:   slices.Clone(a.OutputGuardrails),
		OutputType:         a.OutputType,
		ResetToolChoice:    a.ResetToolChoice,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return fromOptions(a.Name, opts)
}

// ResolveInstructions produces the system prompt for this run.
func (a *Agent) ResolveInstructions(rc *core.RunContext) (string, error) {
	return a.Instructions.Resolve(rc, a)
}

// FindTool returns the function tool registered under name.
func (a *Agent) FindTool(name string) (tool.Tool, bool) {
	for _, t := range a.Tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// ToolNames lists the names of the agent's function tools.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.Tools))
	for _, t := range a.Tools {
		names = append(names, t.Name())
	}
	return names
}

// HandoffNames lists the names of the agents this agent can hand off to.
func (a *Agent) HandoffNames() []string {
	names := make([]string, 0, len(a.Handoffs))
	for _, h := range a.Handoffs {
		names = append(names, h.AgentName())
	}
	return names
}

// EnabledHandoffs returns the handoffs advertised to the model this turn.
func (a *Agent) EnabledHandoffs(rc *core.RunContext) []*Handoff {
	out := make([]*Handoff, 0, len(a.Handoffs))
	for _, h := range a.Handoffs {
		if h.Enabled(rc, a) {
			out = append(out, h)
		}
	}
	return out
}

// WithInstructions sets static instructions.
func WithInstructions(text string) func(o *Options) {
	return func(o *Options) { o.Instructions = NewInstructionFromText(text) }
}

// WithInstructionTemplate sets instructions rendered per run.
func WithInstructionTemplate(text string) func(o *Options) {
	return func(o *Options) { o.Instructions = NewInstructionFromTemplate(text) }
}

// WithDynamicInstructions sets instructions computed per run.
func WithDynamicInstructions(fn func(rc *core.RunContext, a *Agent) (string, error)) func(o *Options) {
	return func(o *Options) { o.Instructions = NewInstructionFromFunc(fn) }
}

// WithHandoffDescription sets the description other agents see.
func WithHandoffDescription(desc string) func(o *Options) {
	return func(o *Options) { o.HandoffDescription = desc }
}

// WithModel sets the model handle.
func WithModel(m model.Model) func(o *Options) {
	return func(o *Options) { o.Model = m }
}

// WithModelName sets a model name resolved by the run's model provider.
func WithModelName(name string) func(o *Options) {
	return func(o *Options) { o.ModelName = name }
}

// WithModelSettings sets per agent model settings.
func WithModelSettings(s model.Settings) func(o *Options) {
	return func(o *Options) { o.ModelSettings = s }
}

// WithTools appends function tools.
func WithTools(tools ...tool.Tool) func(o *Options) {
	return func(o *Options) { o.Tools = append(o.Tools, tools...) }
}

// WithHandoffs appends configured handoffs.
func WithHandoffs(handoffs ...*Handoff) func(o *Options) {
	return func(o *Options) { o.Handoffs = append(o.Handoffs, handoffs...) }
}

// WithHandoffAgents appends default handoffs to the given agents.
func WithHandoffAgents(agents ...*Agent) func(o *Options) {
	return func(o *Options) {
		for _, a := range agents {
			o.Handoffs = append(o.Handoffs, HandoffTo(a))
		}
	}
}

// WithInputGuardrails appends input guardrails.
func WithInputGuardrails(gs ...InputGuardrail) func(o *Options) {
	return func(o *Options) { o.InputGuardrails = append(o.InputGuardrails, gs...) }
}

// WithOutputGuardrails appends output guardrails.
func WithOutputGuardrails(gs ...OutputGuardrail) func(o *Options) {
	return func(o *Options) { o.OutputGuardrails = append(o.OutputGuardrails, gs...) }
}

// WithOutputType requests structured output.
func WithOutputType(ot *OutputType) func(o *Options) {
	return func(o *Options) { o.OutputType = ot }
}
