package runner

import (
	"errors"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/tool"
)

// Hooks receives lifecycle notifications during a run. Hooks run
// synchronously; returning an error aborts the run. OnToolStart and
// OnToolEnd may be called concurrently for parallel tool calls.
type Hooks interface {
	OnAgentStart(rc *core.RunContext, a *agent.Agent) error
	OnAgentEnd(rc *core.RunContext, a *agent.Agent, output any) error
	OnHandoff(rc *core.RunContext, from, to *agent.Agent) error
	OnToolStart(rc *core.RunContext, a *agent.Agent, t tool.Tool) error
	OnToolEnd(rc *core.RunContext, a *agent.Agent, t tool.Tool, result string) error
}

// NoOpHooks ignores every notification.
type NoOpHooks struct{}

// OnAgentStart implements Hooks.
func (NoOpHooks) OnAgentStart(*core.RunContext, *agent.Agent) error { return nil }

// OnAgentEnd implements Hooks.
func (NoOpHooks) OnAgentEnd(*core.RunContext, *agent.Agent, any) error { return nil }

// OnHandoff implements Hooks.
func (NoOpHooks) OnHandoff(*core.RunContext, *agent.Agent, *agent.Agent) error { return nil }

// OnToolStart implements Hooks.
func (NoOpHooks) OnToolStart(*core.RunContext, *agent.Agent, tool.Tool) error { return nil }

// OnToolEnd implements Hooks.
func (NoOpHooks) OnToolEnd(*core.RunContext, *agent.Agent, tool.Tool, string) error { return nil }

// HookFuncs implements Hooks from optional functions. Nil fields are skipped.
//
//	hooks := runner.HookFuncs{
//		ToolStart: func(rc *core.RunContext, a *agent.Agent, t tool.Tool) error {
//			fmt.Printf("%s calls %s\n", a.Name, t.Name())
//			return nil
//		},
//	}
type HookFuncs struct {
	AgentStart func(rc *core.RunContext, a *agent.Agent) error
	AgentEnd   func(rc *core.RunContext, a *agent.Agent, output any) error
	Handoff    func(rc *core.RunContext, from, to *agent.Agent) error
	ToolStart  func(rc *core.RunContext, a *agent.Agent, t tool.Tool) error
	ToolEnd    func(rc *core.RunContext, a *agent.Agent, t tool.Tool, result string) error
}

// OnAgentStart implements Hooks.
func (h HookFuncs) OnAgentStart(rc *core.RunContext, a *agent.Agent) error {
	if h.AgentStart == nil {
		return nil
	}
	return h.AgentStart(rc, a)
}

// OnAgentEnd implements Hooks.
func (h HookFuncs) OnAgentEnd(rc *core.RunContext, a *agent.Agent, output any) error {
	if h.AgentEnd == nil {
		return nil
	}
	return h.AgentEnd(rc, a, output)
}

// OnHandoff implements Hooks.
func (h HookFuncs) OnHandoff(rc *core.RunContext, from, to *agent.Agent) error {
	if h.Handoff == nil {
		return nil
	}
	return h.Handoff(rc, from, to)
}

// OnToolStart implements Hooks.
func (h HookFuncs) OnToolStart(rc *core.RunContext, a *agent.Agent, t tool.Tool) error {
	if h.ToolStart == nil {
		return nil
	}
	return h.ToolStart(rc, a, t)
}

// OnToolEnd implements Hooks.
func (h HookFuncs) OnToolEnd(rc *core.RunContext, a *agent.Agent, t tool.Tool, result string) error {
	if h.ToolEnd == nil {
		return nil
	}
	return h.ToolEnd(rc, a, t, result)
}

// LoggingHooks logs every lifecycle point at debug level.
type LoggingHooks struct {
	Logger logging.Logger
}

func (h LoggingHooks) log() logging.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return logging.Default()
}

// OnAgentStart implements Hooks.
func (h LoggingHooks) OnAgentStart(rc *core.RunContext, a *agent.Agent) error {
	h.log().Debug("hook.agent.start", "agent", a.Name, "run_id", rc.RunID)
	return nil
}

// OnAgentEnd implements Hooks.
func (h LoggingHooks) OnAgentEnd(rc *core.RunContext, a *agent.Agent, _ any) error {
	h.log().Debug("hook.agent.end", "agent", a.Name, "run_id", rc.RunID)
	return nil
}

// OnHandoff implements Hooks.
func (h LoggingHooks) OnHandoff(rc *core.RunContext, from, to *agent.Agent) error {
	h.log().Debug("hook.handoff", "from", from.Name, "to", to.Name, "run_id", rc.RunID)
	return nil
}

// OnToolStart implements Hooks.
func (h LoggingHooks) OnToolStart(rc *core.RunContext, a *agent.Agent, t tool.Tool) error {
	h.log().Debug("hook.tool.start", "agent", a.Name, "tool", t.Name(), "run_id", rc.RunID)
	return nil
}

// OnToolEnd implements Hooks.
func (h LoggingHooks) OnToolEnd(rc *core.RunContext, a *agent.Agent, t tool.Tool, _ string) error {
	h.log().Debug("hook.tool.end", "agent", a.Name, "tool", t.Name(), "run_id", rc.RunID)
	return nil
}

// MultiHooks fans notifications out to several Hooks in order. Every hook is
// called; their errors are joined.
type MultiHooks []Hooks

// CombineHooks merges hooks into one.
func CombineHooks(hooks ...Hooks) Hooks { return MultiHooks(hooks) }

func (m MultiHooks) each(fn func(h Hooks) error) error {
	var errs []error
	for _, h := range m {
		if err := fn(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OnAgentStart implements Hooks.
func (m MultiHooks) OnAgentStart(rc *core.RunContext, a *agent.Agent) error {
	return m.each(func(h Hooks) error { return h.OnAgentStart(rc, a) })
}

// OnAgentEnd implements Hooks.
func (m MultiHooks) OnAgentEnd(rc *core.RunContext, a *agent.Agent, output any) error {
	return m.each(func(h Hooks) error { return h.OnAgentEnd(rc, a, output) })
}

// OnHandoff implements Hooks.
func (m MultiHooks) OnHandoff(rc *core.RunContext, from, to *agent.Agent) error {
	return m.each(func(h Hooks) error { return h.OnHandoff(rc, from, to) })
}

// OnToolStart implements Hooks.
func (m MultiHooks) OnToolStart(rc *core.RunContext, a *agent.Agent, t tool.Tool) error {
	return m.each(func(h Hooks) error { return h.OnToolStart(rc, a, t) })
}

// OnToolEnd implements Hooks.
func (m MultiHooks) OnToolEnd(rc *core.RunContext, a *agent.Agent, t tool.Tool, result string) error {
	return m.each(func(h Hooks) error { return h.OnToolEnd(rc, a, t, result) })
}
