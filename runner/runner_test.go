package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/agent/handofffilter"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/testutil"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/session"
	"github.com/hupe1980/agentkit/tool"
	"github.com/hupe1980/agentkit/tracing"
)

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func addTool() tool.Tool {
	return tool.NewTypedTool("add", "Add two numbers", func(_ *core.ToolContext, in addArgs) (int, error) {
		return in.A + in.B, nil
	})
}

func newMock() *model.MockModel { return model.NewMockModel("mock-model", "mock") }

func withMemoryTracing() (func(c *RunConfig), *tracing.MemoryProcessor) {
	mem := tracing.NewMemoryProcessor()
	p := tracing.NewProvider(mem)
	return func(c *RunConfig) { c.TraceProvider = p }, mem
}

func TestRun_TextAnswer(t *testing.T) {
	m := newMock().Enqueue(testutil.TextResponse("Islamabad"))
	a := agent.New("Assistant", agent.WithInstructions("You are a helpful assistant."), agent.WithModel(m))
	withTrace, mem := withMemoryTracing()

	res, err := Run(context.Background(), a, "What is the capital of Pakistan?", withTrace)
	require.NoError(t, err)

	assert.Equal(t, "Islamabad", res.FinalOutput)
	assert.Same(t, a, res.LastAgent)
	assert.Equal(t, core.Usage{Requests: 1, InputTokens: 10, OutputTokens: 5, TotalTokens: 15}, res.Usage)
	require.Len(t, res.NewItems, 1)
	assert.Equal(t, ItemMessage, res.NewItems[0].Kind)
	assert.Len(t, res.RawResponses, 1)
	assert.NotEmpty(t, res.RunID)

	reqs := m.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "You are a helpful assistant.", reqs[0].Instructions)
	assert.Empty(t, reqs[0].Tools)

	require.Len(t, mem.Traces(), 1)
	assert.Equal(t, DefaultWorkflowName, mem.Traces()[0].Name())
	assert.Equal(t, res.TraceID, mem.Traces()[0].ID())
	assert.Len(t, mem.SpansOfType(tracing.SpanTypeAgent), 1)

	gens := mem.SpansOfType(tracing.SpanTypeGeneration)
	require.Len(t, gens, 1)
	assert.NotNil(t, gens[0].Data().(*tracing.GenerationSpanData).Input)

	assert.Contains(t, res.String(), `Last agent: Agent(name="Assistant")`)
	assert.Contains(t, res.String(), "Islamabad")
}

func TestRun_ToolCallLoop(t *testing.T) {
	m := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "add", addArgs{A: 2, B: 2}))).
		Enqueue(testutil.TextResponse("2+2 is 4"))
	a := agent.New("MathAgent", agent.WithModel(m), agent.WithTools(addTool()))

	res, err := Run(context.Background(), a, "2+2?", WithTracingDisabled())
	require.NoError(t, err)

	assert.Equal(t, "2+2 is 4", res.FinalOutput)
	require.Len(t, res.NewItems, 3)
	assert.Equal(t, ItemToolCall, res.NewItems[0].Kind)
	assert.Equal(t, ItemToolOutput, res.NewItems[1].Kind)
	assert.Equal(t, ItemMessage, res.NewItems[2].Kind)
	assert.Equal(t, 4, res.NewItems[1].Content.FunctionResponses()[0].Response)
	assert.Equal(t, 2, res.Usage.Requests)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "add", reqs[0].Tools[0].Function.Name)

	second := reqs[1].Contents
	require.Len(t, second, 3)
	assert.Equal(t, core.RoleTool, second[2].Role)
	assert.Equal(t, "4", second[2].FunctionResponses()[0].Output())

	input := res.ToInputList()
	assert.Len(t, input, 4)
}

func TestRun_ToolFailureIsReportedToModel(t *testing.T) {
	failing := tool.NewFunctionTool("explode", "Always fails", nil, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, errors.New("kaboom")
	})
	panicking := tool.NewFunctionTool("panic", "Always panics", nil, func(*core.ToolContext, map[string]any) (any, error) {
		panic("oops")
	})

	m := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "explode", nil), testutil.Call("c2", "panic", nil))).
		Enqueue(testutil.TextResponse("sorry"))
	a := agent.New("Assistant", agent.WithModel(m), agent.WithTools(failing, panicking))
	withTrace, mem := withMemoryTracing()

	res, err := Run(context.Background(), a, "go", withTrace)
	require.NoError(t, err)
	assert.Equal(t, "sorry", res.FinalOutput)

	outputs := res.NewItems[2:4]
	first := outputs[0].Content.FunctionResponses()[0]
	assert.Equal(t, "c1", first.ID)
	assert.Contains(t, first.Error, "An error occurred while running the tool. Please try again. Error: ")
	assert.Contains(t, first.Error, "kaboom")

	second := outputs[1].Content.FunctionResponses()[0]
	assert.Equal(t, "c2", second.ID)
	assert.Contains(t, second.Error, "panic recovered: oops")

	fnSpans := mem.SpansOfType(tracing.SpanTypeFunction)
	require.Len(t, fnSpans, 2)
	for _, s := range fnSpans {
		assert.NotNil(t, s.Error())
	}
}

func TestRun_ParallelToolCalls(t *testing.T) {
	var started sync.WaitGroup
	started.Add(2)

	rendezvous := func(name string) tool.Tool {
		return tool.NewFunctionTool(name, name, nil, func(*core.ToolContext, map[string]any) (any, error) {
			started.Done()

			done := make(chan struct{})
			go func() { started.Wait(); close(done) }()

			select {
			case <-done:
				return name + " ok", nil
			case <-time.After(2 * time.Second):
				return nil, errors.New("not run in parallel")
			}
		})
	}

	m := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "poetry", nil), testutil.Call("c2", "summary", nil))).
		Enqueue(testutil.TextResponse("done"))
	a := agent.New("Assistant",
		agent.WithModel(m),
		agent.WithTools(rendezvous("poetry"), rendezvous("summary")),
		agent.WithModelSettings(model.Settings{ParallelToolCalls: model.Bool(true)}),
	)

	res, err := Run(context.Background(), a, "poem then summary", WithTracingDisabled())
	require.NoError(t, err)

	first := res.NewItems[2].Content.FunctionResponses()[0]
	second := res.NewItems[3].Content.FunctionResponses()[0]
	assert.Equal(t, "poetry ok", first.Response)
	assert.Equal(t, "summary ok", second.Response)
}

func TestRun_SequentialToolCalls(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)

	record := func(name string) tool.Tool {
		return tool.NewFunctionTool(name, name, nil, func(*core.ToolContext, map[string]any) (any, error) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return name, nil
		})
	}

	m := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "a", nil), testutil.Call("c2", "b", nil), testutil.Call("c3", "c", nil))).
		Enqueue(testutil.TextResponse("done"))
	a := agent.New("Assistant",
		agent.WithModel(m),
		agent.WithTools(record("a"), record("b"), record("c")),
		agent.WithModelSettings(model.Settings{ParallelToolCalls: model.Bool(false)}),
	)

	_, err := Run(context.Background(), a, "go", WithTracingDisabled())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestRun_UnknownTool(t *testing.T) {
	m := newMock().Enqueue(testutil.CallResponse(testutil.Call("c1", "missing", nil)))
	a := agent.New("Assistant", agent.WithModel(m))

	_, err := Run(context.Background(), a, "go", WithTracingDisabled())

	var mbe *core.ModelBehaviorError
	require.ErrorAs(t, err, &mbe)
	assert.Contains(t, mbe.Message, "missing")
	assert.ErrorIs(t, err, core.ErrAgentsException)
}

func TestRun_MaxTurns(t *testing.T) {
	m := newMock()
	for i := 0; i < 5; i++ {
		m.Enqueue(testutil.CallResponse(testutil.Call(fmt.Sprintf("c%d", i), "add", addArgs{A: 1, B: 1})))
	}
	a := agent.New("Looper", agent.WithModel(m), agent.WithTools(addTool()))

	_, err := Run(context.Background(), a, "loop", WithMaxTurns(2), WithTracingDisabled())

	var maxErr *core.MaxTurnsExceededError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 2, maxErr.MaxTurns)
	assert.Equal(t, 2, m.Calls())
}

func TestRun_ModelError(t *testing.T) {
	m := newMock().AddError(errors.New("upstream down"))
	a := agent.New("Assistant", agent.WithModel(m))
	withTrace, mem := withMemoryTracing()

	_, err := Run(context.Background(), a, "hi", withTrace)
	assert.EqualError(t, err, "upstream down")

	gens := mem.SpansOfType(tracing.SpanTypeGeneration)
	require.Len(t, gens, 1)
	assert.NotNil(t, gens[0].Error())
}

func TestRun_ModelResolution(t *testing.T) {
	a := agent.New("NoModel")

	_, err := Run(context.Background(), a, "hi", WithTracingDisabled())
	var userErr *core.UserError
	require.ErrorAs(t, err, &userErr)

	named := newMock().Enqueue(testutil.TextResponse("from provider"))
	provided := agent.New("Named", agent.WithModelName("gemini-2.0-flash"))

	res, err := Run(context.Background(), provided, "hi", WithTracingDisabled(), func(c *RunConfig) {
		c.ModelProvider = &model.StaticProvider{Models: map[string]model.Model{"gemini-2.0-flash": named}}
	})
	require.NoError(t, err)
	assert.Equal(t, "from provider", res.FinalOutput)

	override := newMock().Enqueue(testutil.TextResponse("from run config"))
	own := newMock()
	res, err = Run(context.Background(), agent.New("Own", agent.WithModel(own)), "hi", WithTracingDisabled(), WithModel(override))
	require.NoError(t, err)
	assert.Equal(t, "from run config", res.FinalOutput)
	assert.Zero(t, own.Calls())

	_, err = Run(context.Background(), nil, "hi")
	require.ErrorAs(t, err, &userErr)
}

func TestRun_Handoff(t *testing.T) {
	triageModel := newMock().Enqueue(testutil.CallResponse(testutil.Call("h1", "transfer_to_math_agent", nil)))
	mathModel := newMock().Enqueue(testutil.TextResponse("4"))

	math := agent.New("Math Agent", agent.WithModel(mathModel), agent.WithInstructions("math"))
	urdu := agent.New("Urdu agent", agent.WithModel(newMock()))
	triage := agent.New("Teacher", agent.WithModel(triageModel), agent.WithHandoffAgents(math, urdu))

	var handoffs []string
	hooks := HookFuncs{Handoff: func(_ *core.RunContext, from, to *agent.Agent) error {
		handoffs = append(handoffs, from.Name+"->"+to.Name)
		return nil
	}}

	withTrace, mem := withMemoryTracing()
	res, err := Run(context.Background(), triage, "2+2?", withTrace, func(c *RunConfig) { c.Hooks = hooks })
	require.NoError(t, err)

	assert.Equal(t, "4", res.FinalOutput)
	assert.Same(t, math, res.LastAgent)
	assert.Equal(t, []string{"Teacher->Math Agent"}, handoffs)

	require.Len(t, res.NewItems, 3)
	assert.Equal(t, ItemHandoffCall, res.NewItems[0].Kind)
	assert.Equal(t, ItemHandoffOutput, res.NewItems[1].Kind)
	assert.Same(t, math, res.NewItems[1].TargetAgent)
	assert.Equal(t, map[string]any{"assistant": "Math Agent"}, res.NewItems[1].Content.FunctionResponses()[0].Response)

	triageReq := triageModel.Requests()[0]
	require.Len(t, triageReq.Tools, 2)
	assert.Equal(t, "transfer_to_math_agent", triageReq.Tools[0].Function.Name)
	assert.Equal(t, "transfer_to_urdu_agent", triageReq.Tools[1].Function.Name)

	mathReq := mathModel.Requests()[0]
	assert.Equal(t, "math", mathReq.Instructions)
	assert.Len(t, mathReq.Contents, 3)

	assert.Len(t, mem.SpansOfType(tracing.SpanTypeAgent), 2)
	hs := mem.SpansOfType(tracing.SpanTypeHandoff)
	require.Len(t, hs, 1)
	assert.Equal(t, "Math Agent", hs[0].Data().(*tracing.HandoffSpanData).ToAgent)
}

func TestRun_MultipleHandoffsFirstWins(t *testing.T) {
	triageModel := newMock().Enqueue(testutil.CallResponse(
		testutil.Call("h1", "transfer_to_a", nil),
		testutil.Call("h2", "transfer_to_b", nil),
	))
	aModel := newMock().Enqueue(testutil.TextResponse("from a"))

	a := agent.New("A", agent.WithModel(aModel))
	b := agent.New("B", agent.WithModel(newMock()))
	triage := agent.New("Triage", agent.WithModel(triageModel), agent.WithHandoffAgents(a, b))

	res, err := Run(context.Background(), triage, "hi", WithTracingDisabled())
	require.NoError(t, err)
	assert.Same(t, a, res.LastAgent)

	var ignored []core.FunctionResponse
	for _, item := range res.NewItems {
		if item.Kind == ItemToolOutput {
			ignored = append(ignored, item.Content.FunctionResponses()...)
		}
	}
	require.Len(t, ignored, 1)
	assert.Equal(t, "h2", ignored[0].ID)
	assert.Equal(t, "Multiple handoffs detected, ignoring this one.", ignored[0].Response)
}

type escalation struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

func TestRun_HandoffWithInputAndFilter(t *testing.T) {
	triageModel := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "add", addArgs{A: 1, B: 2}))).
		Enqueue(testutil.CallResponse(testutil.Call("h1", "Urdu", `{"name":"Ali"}`))).
		Enqueue(testutil.CallResponse(testutil.Call("h2", "Urdu", escalation{Name: "Ali", Instructions: "reply in Urdu"})))
	urduModel := newMock().Enqueue(testutil.TextResponse("جی"))

	var got escalation
	urdu := agent.New("Urdu agent", agent.WithModel(urduModel))
	triage := agent.New("Teacher",
		agent.WithModel(triageModel),
		agent.WithTools(addTool()),
		agent.WithHandoffs(agent.HandoffTo(urdu,
			agent.WithToolName("Urdu"),
			agent.WithToolDescription("Use this tool to answer questions in Urdu."),
			agent.WithInputFilter(handofffilter.RemoveAllTools),
			agent.OnHandoffWithInput(func(_ *core.RunContext, in escalation) error {
				got = in
				return nil
			}),
		)),
	)

	res, err := Run(context.Background(), triage, "What is urdu?", WithTracingDisabled())
	require.NoError(t, err)
	assert.Same(t, urdu, res.LastAgent)
	assert.Equal(t, escalation{Name: "Ali", Instructions: "reply in Urdu"}, got)

	// invalid input relayed to the model as a tool error
	third := triageModel.Requests()[2].Contents
	last := third[len(third)-1].FunctionResponses()[0]
	assert.Equal(t, "h1", last.ID)
	assert.Contains(t, last.Error, "invalid input for handoff Urdu")

	urduReq := urduModel.Requests()[0]
	require.Len(t, urduReq.Contents, 1)
	assert.Equal(t, "What is urdu?", urduReq.Contents[0].Text())

	// result keeps the full history
	assert.Greater(t, len(res.NewItems), 5)
}

func TestRun_RunConfigHandoffFilter(t *testing.T) {
	triageModel := newMock().Enqueue(testutil.CallResponse(testutil.Call("h1", "transfer_to_target", nil)))
	targetModel := newMock().Enqueue(testutil.TextResponse("ok"))
	target := agent.New("Target", agent.WithModel(targetModel))
	triage := agent.New("Triage", agent.WithModel(triageModel), agent.WithHandoffAgents(target))

	_, err := Run(context.Background(), triage, "hi", WithTracingDisabled(), func(c *RunConfig) {
		c.HandoffInputFilter = handofffilter.RemoveAllTools
	})
	require.NoError(t, err)

	contents := targetModel.Requests()[0].Contents
	require.Len(t, contents, 1)
	assert.False(t, contents[0].HasFunctionParts())
}

func TestRun_DisabledHandoffNotAdvertised(t *testing.T) {
	m := newMock().Enqueue(testutil.TextResponse("answer myself"))
	closed := agent.HandoffTo(agent.New("Urdu agent"), agent.WithIsEnabled(func(*core.RunContext, *agent.Agent) bool { return false }))
	a := agent.New("Teacher", agent.WithModel(m), agent.WithHandoffs(closed))

	_, err := Run(context.Background(), a, "hi", WithTracingDisabled())
	require.NoError(t, err)
	assert.Empty(t, m.Requests()[0].Tools)
}

func TestRun_InputGuardrailTripwire(t *testing.T) {
	m := newMock()
	guard := agent.InputGuardrail{
		Name: "check_programming_language",
		Func: func(_ *core.RunContext, _ *agent.Agent, input []core.Content) (agent.GuardrailOutput, error) {
			return agent.GuardrailOutput{OutputInfo: "about python", TripwireTriggered: input[0].Text() == "hello what is python"}, nil
		},
	}
	passing := agent.InputGuardrail{Name: "always_ok", Func: func(*core.RunContext, *agent.Agent, []core.Content) (agent.GuardrailOutput, error) {
		return agent.GuardrailOutput{}, nil
	}}
	a := agent.New("Assistant", agent.WithModel(m), agent.WithInputGuardrails(passing, guard))
	withTrace, mem := withMemoryTracing()

	_, err := Run(context.Background(), a, "hello what is python", withTrace)

	var trip *agent.InputGuardrailTripwireError
	require.ErrorAs(t, err, &trip)
	assert.Equal(t, "check_programming_language", trip.Result.Guardrail.Name)
	assert.Equal(t, "about python", trip.Result.Output.OutputInfo)
	assert.Contains(t, err.Error(), "check_programming_language")
	assert.Zero(t, m.Calls())

	spans := mem.SpansOfType(tracing.SpanTypeGuardrail)
	require.Len(t, spans, 2)

	ok := newMock().Enqueue(testutil.TextResponse("hi there"))
	res, err := Run(context.Background(), a.Clone(agent.WithModel(ok)), "hello", WithTracingDisabled())
	require.NoError(t, err)
	assert.Len(t, res.InputGuardrailResults, 2)
}

type message struct {
	Response string `json:"response"`
}

func TestRun_OutputTypeAndGuardrail(t *testing.T) {
	m := newMock().Enqueue(testutil.TextResponse(`{"response":"Python is a programming language"}`))

	guard := agent.OutputGuardrail{
		Name: "ensure_programming_language",
		Func: func(_ *core.RunContext, _ *agent.Agent, output any) (agent.GuardrailOutput, error) {
			msg := output.(message)
			return agent.GuardrailOutput{OutputInfo: msg.Response, TripwireTriggered: true}, nil
		},
	}
	a := agent.New("Assistant",
		agent.WithModel(m),
		agent.WithOutputType(agent.NewOutputType[message]()),
		agent.WithOutputGuardrails(guard),
	)

	_, err := Run(context.Background(), a, "Hello!", WithTracingDisabled())

	var trip *agent.OutputGuardrailTripwireError
	require.ErrorAs(t, err, &trip)
	assert.Equal(t, message{Response: "Python is a programming language"}, trip.Result.AgentOutput)

	req := m.Requests()[0]
	require.NotNil(t, req.OutputSchema)
	assert.Equal(t, "message", req.OutputSchema.Name)

	m2 := newMock().Enqueue(testutil.TextResponse("```json\n{\"response\":\"hi\"}\n```"))
	res, err := Run(context.Background(), a.Clone(agent.WithModel(m2), func(o *agent.Options) { o.OutputGuardrails = nil }), "Hello!", WithTracingDisabled())
	require.NoError(t, err)

	msg, err := FinalOutputAs[message](res)
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Response)

	_, err = FinalOutputAs[string](res)
	assert.Error(t, err)
}

func TestRun_InvalidStructuredOutput(t *testing.T) {
	m := newMock().Enqueue(testutil.TextResponse("definitely not json"))
	a := agent.New("Assistant", agent.WithModel(m), agent.WithOutputType(agent.NewOutputType[message]()))

	_, err := Run(context.Background(), a, "hi", WithTracingDisabled())

	var mbe *core.ModelBehaviorError
	require.ErrorAs(t, err, &mbe)
	assert.Contains(t, mbe.Message, "message")
}

type userData struct {
	Name string
	Age  int
}

func TestRun_ContextValueReachesTools(t *testing.T) {
	userInfo := tool.NewFunctionTool("user_info", "Get the user name and age", nil, func(tc *core.ToolContext, _ map[string]any) (any, error) {
		u, ok := core.ContextValue[*userData](tc.RunContext())
		if !ok {
			return nil, errors.New("no user")
		}
		return fmt.Sprintf("Her name is %s and her age is %d years old", u.Name, u.Age), nil
	})

	m := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "user_info", nil))).
		Enqueue(testutil.TextResponse("Yusra, 19"))
	a := agent.New("Assistant", agent.WithModel(m), agent.WithTools(userInfo))

	res, err := Run(context.Background(), a, "what's her age and name?", WithTracingDisabled(), WithContext(&userData{Name: "Yusra", Age: 19}))
	require.NoError(t, err)

	out := res.NewItems[1].Content.FunctionResponses()[0]
	assert.Equal(t, "Her name is Yusra and her age is 19 years old", out.Response)

	// the context value never reaches the model
	for _, c := range m.Requests()[0].Contents {
		assert.NotContains(t, c.Text(), "Yusra")
	}
}

func TestRun_ResetToolChoice(t *testing.T) {
	m := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "add", addArgs{A: 1, B: 1}))).
		Enqueue(testutil.TextResponse("2"))
	a := agent.New("Assistant",
		agent.WithModel(m),
		agent.WithTools(addTool()),
		agent.WithModelSettings(model.Settings{ToolChoice: model.ToolChoiceRequired, Temperature: model.Float(0.9), MaxTokens: model.Int(500)}),
	)

	_, err := Run(context.Background(), a, "1+1", WithTracingDisabled())
	require.NoError(t, err)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, model.ToolChoiceRequired, reqs[0].Settings.ToolChoice)
	assert.Equal(t, model.ToolChoiceAuto, reqs[1].Settings.ToolChoice)
	assert.Equal(t, 500, *reqs[1].Settings.MaxTokens)

	keep := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "add", addArgs{A: 1, B: 1}))).
		Enqueue(testutil.TextResponse("2"))
	sticky := a.Clone(agent.WithModel(keep), func(o *agent.Options) { o.ResetToolChoice = false })

	_, err = Run(context.Background(), sticky, "1+1", WithTracingDisabled())
	require.NoError(t, err)
	assert.Equal(t, model.ToolChoiceRequired, keep.Requests()[1].Settings.ToolChoice)
}

func TestRun_RunConfigSettingsOverride(t *testing.T) {
	m := newMock().Enqueue(testutil.TextResponse("ok"))
	a := agent.New("Assistant", agent.WithModel(m), agent.WithModelSettings(model.Settings{Temperature: model.Float(0.9)}))

	_, err := Run(context.Background(), a, "hi", WithTracingDisabled(), func(c *RunConfig) {
		c.ModelSettings = &model.Settings{Temperature: model.Float(0.1)}
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, *m.Requests()[0].Settings.Temperature, 1e-9)
}

func TestRun_Session(t *testing.T) {
	sess := session.NewInMemory("conv")
	m := newMock().
		Enqueue(testutil.TextResponse("Nice to meet you, Ali")).
		Enqueue(testutil.TextResponse("Your name is Ali"))
	a := agent.New("Assistant", agent.WithModel(m))

	_, err := Run(context.Background(), a, "I am Ali", WithTracingDisabled(), WithSession(sess))
	require.NoError(t, err)

	res, err := Run(context.Background(), a, "What is my name?", WithTracingDisabled(), WithSession(sess))
	require.NoError(t, err)
	assert.Equal(t, "Your name is Ali", res.FinalOutput)

	second := m.Requests()[1].Contents
	require.Len(t, second, 3)
	assert.Equal(t, "I am Ali", second[0].Text())
	assert.Equal(t, "What is my name?", second[2].Text())

	items, _ := sess.Items(0)
	assert.Len(t, items, 4)
}

func TestRun_AttachesToOuterTrace(t *testing.T) {
	mem := tracing.NewMemoryProcessor()
	p := tracing.NewProvider(mem)

	ctx, tr := tracing.NewTrace(context.Background(), "Math workflow", func(o *tracing.TraceOptions) { o.Provider = p })

	m := newMock().Enqueue(testutil.TextResponse("4")).Enqueue(testutil.TextResponse("four"))
	a := agent.New("Assistant", agent.WithModel(m))

	res1, err := Run(ctx, a, "2+2?")
	require.NoError(t, err)

	spanCtx, span := tracing.CustomSpan(ctx, "English span", nil)
	res2, err := Run(spanCtx, a, "in english?")
	require.NoError(t, err)
	span.Finish()
	tr.Finish()

	assert.Equal(t, tr.ID(), res1.TraceID)
	assert.Equal(t, tr.ID(), res2.TraceID)
	require.Len(t, mem.Traces(), 1)

	var nested int
	for _, s := range mem.SpansOfType(tracing.SpanTypeAgent) {
		if s.ParentID() == span.ID() {
			nested++
		}
	}
	assert.Equal(t, 1, nested)
}

func TestRun_SensitiveDataExcluded(t *testing.T) {
	m := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "add", addArgs{A: 1, B: 2}))).
		Enqueue(testutil.TextResponse("3"))
	a := agent.New("Assistant", agent.WithModel(m), agent.WithTools(addTool()))
	withTrace, mem := withMemoryTracing()

	_, err := Run(context.Background(), a, "1+2", withTrace, func(c *RunConfig) { c.TraceIncludeSensitiveData = false })
	require.NoError(t, err)

	for _, s := range mem.SpansOfType(tracing.SpanTypeGeneration) {
		d := s.Data().(*tracing.GenerationSpanData)
		assert.Nil(t, d.Input)
		assert.Nil(t, d.Output)
		assert.NotNil(t, d.Usage)
	}

	fn := mem.SpansOfType(tracing.SpanTypeFunction)
	require.Len(t, fn, 1)
	assert.Empty(t, fn[0].Data().(*tracing.FunctionSpanData).Input)
	assert.Empty(t, fn[0].Data().(*tracing.FunctionSpanData).Output)
}

func TestRun_TracingDisabled(t *testing.T) {
	withTrace, mem := withMemoryTracing()
	m := newMock().Enqueue(testutil.TextResponse("ok"))

	_, err := Run(context.Background(), agent.New("A", agent.WithModel(m)), "hi", withTrace, WithTracingDisabled())
	require.NoError(t, err)
	assert.Empty(t, mem.Traces())
	assert.Empty(t, mem.Spans())
}

func TestRun_HooksOrderAndAbort(t *testing.T) {
	var events []string
	hooks := HookFuncs{
		AgentStart: func(_ *core.RunContext, a *agent.Agent) error { events = append(events, "start:"+a.Name); return nil },
		AgentEnd:   func(_ *core.RunContext, a *agent.Agent, _ any) error { events = append(events, "end:"+a.Name); return nil },
		ToolStart:  func(_ *core.RunContext, _ *agent.Agent, t tool.Tool) error { events = append(events, "tool:"+t.Name()); return nil },
		ToolEnd: func(_ *core.RunContext, _ *agent.Agent, t tool.Tool, result string) error {
			events = append(events, "tool_end:"+t.Name()+"="+result)
			return nil
		},
	}

	m := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("c1", "add", addArgs{A: 1, B: 2}))).
		Enqueue(testutil.TextResponse("3"))
	a := agent.New("Assistant", agent.WithModel(m), agent.WithTools(addTool()))

	_, err := Run(context.Background(), a, "1+2", WithTracingDisabled(), func(c *RunConfig) {
		c.Hooks = CombineHooks(hooks, LoggingHooks{})
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"start:Assistant", "tool:add", "tool_end:add=3", "end:Assistant"}, events)

	abort := HookFuncs{AgentStart: func(*core.RunContext, *agent.Agent) error { return errors.New("denied") }}
	_, err = Run(context.Background(), a, "again", WithTracingDisabled(), func(c *RunConfig) { c.Hooks = abort })
	assert.ErrorContains(t, err, "denied")
}

func TestRunner_BaseConfig(t *testing.T) {
	m := newMock().Enqueue(testutil.TextResponse("ok"))
	r := New(WithModel(m), WithTracingDisabled(), WithMaxTurns(3))

	res, err := r.RunContents(context.Background(), agent.New("A"), []core.Content{
		core.NewUserContent("first"),
		core.NewAssistantContent("reply"),
		core.NewUserContent("second"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res.FinalOutput)
	assert.Len(t, m.Requests()[0].Contents, 3)
	assert.Len(t, res.Input, 3)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, agent.New("A", agent.WithModel(newMock())), "hi", WithTracingDisabled())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_InvalidHandoffInputStaysWithAgent(t *testing.T) {
	triageModel := newMock().
		Enqueue(testutil.CallResponse(testutil.Call("h1", "Urdu", `{"name":"Ali"}`))).
		Enqueue(testutil.TextResponse("fallback"))
	urduModel := newMock()

	called := 0
	urdu := agent.New("Urdu agent", agent.WithModel(urduModel))
	triage := agent.New("Teacher",
		agent.WithModel(triageModel),
		agent.WithHandoffs(agent.HandoffTo(urdu,
			agent.WithToolName("Urdu"),
			agent.OnHandoffWithInput(func(_ *core.RunContext, _ escalation) error {
				called++
				return nil
			}),
		)),
	)

	res, err := Run(context.Background(), triage, "What is urdu?", WithTracingDisabled())
	require.NoError(t, err)

	assert.Same(t, triage, res.LastAgent)
	assert.Equal(t, "fallback", res.FinalOutput)
	assert.Zero(t, called)
	assert.Zero(t, urduModel.Calls())

	reqs := triageModel.Requests()
	require.Len(t, reqs, 2)
	contents := reqs[1].Contents
	out := contents[len(contents)-1].FunctionResponses()
	require.Len(t, out, 1)
	assert.Equal(t, "h1", out[0].ID)
	assert.Contains(t, out[0].Error, "invalid input for handoff Urdu")
	assert.Contains(t, out[0].Error, "instructions")
}

func TestRun_GuardrailPanicBecomesError(t *testing.T) {
	panicking := func(*core.RunContext, *agent.Agent, []core.Content) (agent.GuardrailOutput, error) {
		var checker *agent.Agent
		return agent.GuardrailOutput{OutputInfo: checker.Name}, nil
	}

	m := newMock()
	a := agent.New("Assistant", agent.WithModel(m), agent.WithInputGuardrails(agent.InputGuardrail{Name: "nil_checker", Func: panicking}))
	withTrace, mem := withMemoryTracing()

	_, err := Run(context.Background(), a, "hello", withTrace)
	require.Error(t, err)

	var pe *panicErr
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "input guardrail nil_checker")
	assert.Zero(t, m.Calls())

	spans := mem.SpansOfType(tracing.SpanTypeGuardrail)
	require.Len(t, spans, 1)
	require.NotNil(t, spans[0].Error())

	out := newMock().Enqueue(testutil.TextResponse("done"))
	b := agent.New("Assistant", agent.WithModel(out), agent.WithOutputGuardrails(agent.OutputGuardrail{
		Name: "exploding",
		Func: func(*core.RunContext, *agent.Agent, any) (agent.GuardrailOutput, error) {
			panic("boom")
		},
	}))

	_, err = Run(context.Background(), b, "hello", WithTracingDisabled())
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.val)
	assert.Contains(t, err.Error(), "output guardrail exploding")
}
