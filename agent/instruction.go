package agent

import (
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
)

// Provider supplies dynamic instruction text at runtime.
// Implementations can derive instructions from the run context value, run state, etc.
type Provider interface {
	Instruction(rc *core.RunContext, a *Agent) (string, error)
}

// Func is a functional adapter to allow ordinary functions to be used as Providers.
type Func func(rc *core.RunContext, a *Agent) (string, error)

// Instruction implements Provider.
func (f Func) Instruction(rc *core.RunContext, a *Agent) (string, error) { return f(rc, a) }

// Instruction represents either a static instruction string, a text/template
// rendered per run, or a dynamic provider.
type Instruction struct {
	text     string
	template bool
	provider Provider
}

// NewInstructionFromText creates an Instruction from a static string.
func NewInstructionFromText(text string) Instruction { return Instruction{text: text} }

// NewInstructionFromTemplate creates an Instruction rendered with text/template.
// The template sees .Agent (name), .Context (run context value) and .State.
func NewInstructionFromTemplate(text string) Instruction {
	return Instruction{text: text, template: true}
}

// NewInstructionFromProvider creates an Instruction from a dynamic provider.
func NewInstructionFromProvider(p Provider) Instruction { return Instruction{provider: p} }

// NewInstructionFromFunc creates an Instruction from a function.
func NewInstructionFromFunc(f func(rc *core.RunContext, a *Agent) (string, error)) Instruction {
	return Instruction{provider: Func(f)}
}

// IsStatic returns true if the instruction is backed by a plain string.
func (i Instruction) IsStatic() bool { return i.provider == nil && !i.template }

// IsZero reports whether no instruction was configured.
func (i Instruction) IsZero() bool { return i.provider == nil && i.text == "" }

// Resolve returns the instruction text, invoking the provider or rendering
// the template if needed.
func (i Instruction) Resolve(rc *core.RunContext, a *Agent) (string, error) {
	switch {
	case i.provider != nil:
		return i.provider.Instruction(rc, a)
	case i.template:
		data := map[string]any{"Agent": a.Name}
		if rc != nil {
			data["Context"] = rc.Value
			data["State"] = rc.State()
		}
		return util.RenderTemplate(i.text, data)
	default:
		return i.text, nil
	}
}
