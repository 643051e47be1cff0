package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/tool"
	"github.com/hupe1980/agentkit/tracing"
)

const multipleHandoffsMessage = "Multiple handoffs detected, ignoring this one."

// Runner executes agents with a base RunConfig. The zero configuration is
// DefaultRunConfig. A Runner is safe for concurrent use; each run keeps its
// own state.
type Runner struct {
	cfg RunConfig
}

// New constructs a Runner whose runs start from DefaultRunConfig with optFns
// applied.
func New(optFns ...func(c *RunConfig)) *Runner {
	cfg := DefaultRunConfig()

	for _, fn := range optFns {
		fn(&cfg)
	}

	return &Runner{cfg: cfg}
}

// Run executes starting with a single user message. It blocks until the run
// completes.
func Run(ctx context.Context, starting *agent.Agent, input string, optFns ...func(c *RunConfig)) (*Result, error) {
	return New().Run(ctx, starting, input, optFns...)
}

// RunContents executes starting with a full input conversation.
func RunContents(ctx context.Context, starting *agent.Agent, input []core.Content, optFns ...func(c *RunConfig)) (*Result, error) {
	return New().RunContents(ctx, starting, input, optFns...)
}

// Run executes starting with a single user message. optFns adjust the
// runner's configuration for this run only.
func (r *Runner) Run(ctx context.Context, starting *agent.Agent, input string, optFns ...func(c *RunConfig)) (*Result, error) {
	return r.RunContents(ctx, starting, []core.Content{core.NewUserContent(input)}, optFns...)
}

// RunContents executes starting with a full input conversation.
func (r *Runner) RunContents(ctx context.Context, starting *agent.Agent, input []core.Content, optFns ...func(c *RunConfig)) (*Result, error) {
	cfg := r.cfg
	for _, fn := range optFns {
		fn(&cfg)
	}

	if starting == nil {
		return nil, core.NewUserError("starting agent is nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	s := &runState{
		cfg:       cfg,
		hooks:     cfg.hooks(),
		limiter:   core.NewTurnLimiter(cfg.MaxTurns),
		usedTools: make(map[*agent.Agent]bool),
		executor: &toolExecutor{
			maxParallel:      cfg.MaxParallelTools,
			hooks:            cfg.hooks(),
			includeSensitive: cfg.TraceIncludeSensitiveData,
		},
	}

	if cfg.Session != nil {
		history, err := cfg.Session.Items(0)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		s.input = append(history, core.CloneContents(input)...)
	} else {
		s.input = core.CloneContents(input)
	}

	s.modelInput = core.CloneContents(s.input)

	ctx, tr, ownTrace := startTrace(ctx, cfg)
	if ownTrace {
		defer tr.Finish()
	}

	s.rc = core.NewRunContext(ctx, core.NewID(), cfg.Context, cfg.logger())
	s.result = &Result{RunID: s.rc.RunID, TraceID: tr.ID(), Input: core.CloneContents(s.input)}

	start := time.Now()
	s.rc.LogInfo("runner.run.start", "agent", starting.Name, "max_turns", cfg.MaxTurns)

	res, err := s.loop(starting)
	if err != nil {
		s.rc.LogError("runner.run.error", "error", err.Error())
		return nil, err
	}

	if cfg.Session != nil {
		toStore := core.CloneContents(input)
		for _, item := range res.NewItems {
			toStore = append(toStore, item.Content)
		}

		if err := cfg.Session.AddItems(toStore...); err != nil {
			return res, fmt.Errorf("save session: %w", err)
		}
	}

	s.rc.LogInfo(
		"runner.run.complete",
		"last_agent", res.LastAgent.Name,
		"turns", s.limiter.Count(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return res, nil
}

// startTrace attaches to the trace carried by ctx or opens one named after
// the workflow. Disabled tracing always gets a fresh disabled trace so no
// span of this run is recorded.
func startTrace(ctx context.Context, cfg RunConfig) (context.Context, *tracing.Trace, bool) {
	if t := tracing.TraceFromContext(ctx); t != nil && !cfg.TracingDisabled {
		return ctx, t, false
	}

	name := cfg.WorkflowName
	if name == "" {
		name = DefaultWorkflowName
	}

	ctx, t := tracing.NewTrace(ctx, name, func(o *tracing.TraceOptions) {
		o.TraceID = cfg.TraceID
		o.GroupID = cfg.GroupID
		o.Metadata = cfg.TraceMetadata
		o.Disabled = cfg.TracingDisabled
		o.Provider = cfg.TraceProvider
	})

	return ctx, t, true
}

type runState struct {
	cfg      RunConfig
	hooks    Hooks
	limiter  *core.TurnLimiter
	executor *toolExecutor
	rc       *core.RunContext
	result   *Result

	// input is the run input including session history.
	input []core.Content

	// modelInput and generated form the conversation sent to the model.
	// Handoff filters may rewrite both; result.NewItems keeps everything.
	modelInput []core.Content
	generated  []core.Content

	usedTools map[*agent.Agent]bool
}

func (s *runState) conversation() []core.Content {
	out := make([]core.Content, 0, len(s.modelInput)+len(s.generated))
	out = append(out, s.modelInput...)
	return append(out, s.generated...)
}

func (s *runState) addItem(item RunItem) {
	s.result.NewItems = append(s.result.NewItems, item)
	s.generated = append(s.generated, item.Content)
}

func (s *runState) loop(starting *agent.Agent) (*Result, error) {
	current := starting
	baseRC := s.rc

	var (
		agentSpan *tracing.Span
		agentRC   *core.RunContext
	)

	endAgentSpan := func(err error) {
		if agentSpan == nil {
			return
		}
		if err != nil {
			agentSpan.SetError(err.Error(), nil)
		}
		agentSpan.Finish()
		agentSpan = nil
	}

	for {
		if err := baseRC.Err(); err != nil {
			endAgentSpan(err)
			return s.result, err
		}

		if agentSpan == nil {
			outputType := ""
			if current.OutputType != nil {
				outputType = current.OutputType.Name
			}

			var spanCtx context.Context
			spanCtx, agentSpan = tracing.AgentSpan(baseRC.Context, current.Name, current.HandoffNames(), current.ToolNames(), outputType)
			agentRC = baseRC.WithContext(spanCtx)

			if err := s.hooks.OnAgentStart(agentRC, current); err != nil {
				err = fmt.Errorf("agent start hook: %w", err)
				endAgentSpan(err)
				return s.result, err
			}
		}

		if err := s.limiter.Increment(); err != nil {
			endAgentSpan(err)
			return s.result, err
		}

		turn := s.limiter.Count()

		agentRC.LogDebug("runner.turn.start", "agent", current.Name, "turn", turn)

		if turn == 1 {
			guardrails := append(append([]agent.InputGuardrail(nil), current.InputGuardrails...), s.cfg.InputGuardrails...)

			results, err := runInputGuardrails(agentRC, current, guardrails, s.input)
			s.result.InputGuardrailResults = results
			if err != nil {
				endAgentSpan(err)
				return s.result, err
			}
		}

		next, done, err := s.runTurn(agentRC, current)
		if err != nil {
			endAgentSpan(err)
			return s.result, err
		}

		if done {
			endAgentSpan(nil)
			s.result.LastAgent = current
			s.result.Usage = baseRC.Usage()
			return s.result, nil
		}

		if next != current {
			endAgentSpan(nil)
			current = next
		}
	}
}

// runTurn performs one model call and acts on the response. It returns the
// agent for the next turn and whether the run is complete.
func (s *runState) runTurn(rc *core.RunContext, current *agent.Agent) (*agent.Agent, bool, error) {
	m, err := s.resolveModel(current)
	if err != nil {
		return nil, false, err
	}

	instructions, err := current.ResolveInstructions(rc)
	if err != nil {
		return nil, false, fmt.Errorf("resolve instructions for %s: %w", current.Name, err)
	}

	handoffs := current.EnabledHandoffs(rc)

	defs := tool.Definitions(current.Tools)
	for _, h := range handoffs {
		defs = append(defs, h.Definition())
	}

	settings := current.ModelSettings.Resolve(s.cfg.ModelSettings)
	if current.ResetToolChoice && s.usedTools[current] && settings.ToolChoice != "" {
		settings.ToolChoice = model.ToolChoiceAuto
	}

	req := model.Request{
		Instructions: instructions,
		Contents:     s.conversation(),
		Tools:        defs,
		Settings:     settings,
		OutputSchema: current.OutputType.OutputSchema(),
		Stream:       s.cfg.Stream,
	}

	resp, err := s.callModel(rc, m, req)
	if err != nil {
		return nil, false, err
	}

	turnStart := len(s.generated)

	if text := resp.Content.Text(); text != "" {
		s.addItem(RunItem{Kind: ItemMessage, Agent: current, Content: core.NewAssistantContent(text)})
	}

	handoffByName := make(map[string]*agent.Handoff, len(handoffs))
	for _, h := range handoffs {
		handoffByName[h.Name()] = h
	}

	var (
		functionCalls []toolCall
		handoffCalls  []core.FunctionCall
	)

	for _, fc := range resp.Content.FunctionCalls() {
		if _, ok := handoffByName[fc.Name]; ok {
			handoffCalls = append(handoffCalls, fc)
			s.addItem(RunItem{Kind: ItemHandoffCall, Agent: current, Content: core.NewFunctionCallContent(fc)})

			continue
		}

		t, ok := current.FindTool(fc.Name)
		if !ok {
			return nil, false, core.NewModelBehaviorError("tool %s not found in agent %s", fc.Name, current.Name)
		}

		functionCalls = append(functionCalls, toolCall{call: fc, tool: t})
		s.addItem(RunItem{Kind: ItemToolCall, Agent: current, Content: core.NewFunctionCallContent(fc)})
	}

	if len(functionCalls) > 0 {
		responses, err := s.executor.execute(rc, current, functionCalls, settings.AllowsParallelToolCalls())
		if err != nil {
			return nil, false, err
		}

		for _, fr := range responses {
			s.addItem(RunItem{Kind: ItemToolOutput, Agent: current, Content: core.NewFunctionResponseContent(fr)})
		}

		s.usedTools[current] = true
	}

	if len(handoffCalls) > 0 {
		return s.handoff(rc, current, turnStart, handoffByName, handoffCalls)
	}

	if len(functionCalls) > 0 {
		return current, false, nil
	}

	return s.finish(rc, current, resp)
}

func (s *runState) resolveModel(a *agent.Agent) (model.Model, error) {
	switch {
	case s.cfg.Model != nil:
		return s.cfg.Model, nil
	case a.Model != nil:
		return a.Model, nil
	case s.cfg.ModelProvider != nil:
		m, err := s.cfg.ModelProvider.Model(a.ModelName)
		if err != nil {
			return nil, fmt.Errorf("resolve model %q for %s: %w", a.ModelName, a.Name, err)
		}
		return m, nil
	default:
		return nil, core.NewUserError("no model configured for agent %s", a.Name)
	}
}

func (s *runState) callModel(rc *core.RunContext, m model.Model, req model.Request) (*model.Response, error) {
	info := m.Info()

	genCtx, span := tracing.GenerationSpan(rc.Context, info.Name, settingsMap(req.Settings))
	defer span.Finish()

	data := span.Data().(*tracing.GenerationSpanData)
	if s.cfg.TraceIncludeSensitiveData {
		data.Input = req.Contents
	}

	start := time.Now()

	resp, err := model.Collect(genCtx, m, req)
	if err != nil {
		span.SetError("Error getting response", map[string]any{"error": err.Error()})
		rc.LogError("runner.model.error", "model", info.Name, "provider", info.Provider, "error", err.Error())

		return nil, err
	}

	usage := resp.Usage.ToUsage()
	rc.AddUsage(usage)

	data.Usage = map[string]int{"input_tokens": usage.InputTokens, "output_tokens": usage.OutputTokens}
	if s.cfg.TraceIncludeSensitiveData {
		data.Output = resp.Content
	}

	s.result.RawResponses = append(s.result.RawResponses, *resp)

	rc.LogDebug(
		"runner.model.response",
		"model", info.Name,
		"finish_reason", resp.FinishReason,
		"function_calls", len(resp.Content.FunctionCalls()),
		"total_tokens", usage.TotalTokens,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return resp, nil
}

func (s *runState) handoff(rc *core.RunContext, current *agent.Agent, turnStart int, byName map[string]*agent.Handoff, calls []core.FunctionCall) (*agent.Agent, bool, error) {
	for _, extra := range calls[1:] {
		s.addItem(RunItem{Kind: ItemToolOutput, Agent: current, Content: core.NewFunctionResponseContent(core.FunctionResponse{
			ID:       extra.ID,
			Name:     extra.Name,
			Response: multipleHandoffsMessage,
		})})
	}

	fc := calls[0]
	h := byName[fc.Name]
	target := h.Agent

	_, span := tracing.HandoffSpan(rc.Context, current.Name, target.Name)
	defer span.Finish()

	if err := h.Invoke(rc, fc.Arguments); err != nil {
		var inputErr *agent.HandoffInputError
		if errors.As(err, &inputErr) {
			span.SetError("Invalid handoff input", map[string]any{"error": err.Error()})
			rc.LogWarn("runner.handoff.invalid_input", "from", current.Name, "to", target.Name, "error", err.Error())

			s.addItem(RunItem{Kind: ItemToolOutput, Agent: current, Content: core.NewFunctionResponseContent(core.FunctionResponse{
				ID:    fc.ID,
				Name:  fc.Name,
				Error: toolErrorPrefix + err.Error(),
			})})

			return current, false, nil
		}

		span.SetError(err.Error(), nil)

		return nil, false, fmt.Errorf("handoff %s: %w", h.Name(), err)
	}

	if err := s.hooks.OnHandoff(rc, current, target); err != nil {
		return nil, false, fmt.Errorf("handoff hook: %w", err)
	}

	s.addItem(RunItem{
		Kind:        ItemHandoffOutput,
		Agent:       current,
		SourceAgent: current,
		TargetAgent: target,
		Content: core.NewFunctionResponseContent(core.FunctionResponse{
			ID:       fc.ID,
			Name:     fc.Name,
			Response: agent.HandoffOutput(target.Name),
		}),
	})

	rc.LogInfo("runner.handoff", "from", current.Name, "to", target.Name, "tool", fc.Name)

	filter := h.InputFilter
	if filter == nil {
		filter = s.cfg.HandoffInputFilter
	}

	if filter != nil {
		filtered := filter(agent.HandoffInputData{
			InputHistory:    core.CloneContents(s.modelInput),
			PreHandoffItems: core.CloneContents(s.generated[:turnStart]),
			NewItems:        core.CloneContents(s.generated[turnStart:]),
		})

		s.modelInput = filtered.InputHistory
		s.generated = append(filtered.PreHandoffItems, filtered.NewItems...)
	}

	return target, false, nil
}

func (s *runState) finish(rc *core.RunContext, current *agent.Agent, resp *model.Response) (*agent.Agent, bool, error) {
	text := resp.Content.Text()

	var output any = text

	if current.OutputType != nil {
		decoded, err := current.OutputType.Decode(text)
		if err != nil {
			return nil, false, &core.ModelBehaviorError{
				Message: fmt.Sprintf("invalid JSON for output type %s", current.OutputType.Name),
				Err:     err,
			}
		}

		output = decoded
	}

	guardrails := append(append([]agent.OutputGuardrail(nil), current.OutputGuardrails...), s.cfg.OutputGuardrails...)

	results, err := runOutputGuardrails(rc, current, guardrails, output)
	s.result.OutputGuardrailResults = results

	if err != nil {
		return nil, false, err
	}

	if err := s.hooks.OnAgentEnd(rc, current, output); err != nil {
		return nil, false, fmt.Errorf("agent end hook: %w", err)
	}

	s.result.FinalOutput = output

	return current, true, nil
}

func settingsMap(st model.Settings) map[string]any {
	b, err := json.Marshal(st)
	if err != nil {
		return nil
	}

	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}

	return out
}
