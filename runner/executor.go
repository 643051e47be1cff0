package runner

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
	"github.com/hupe1980/agentkit/tool"
	"github.com/hupe1980/agentkit/tracing"
)

// toolErrorPrefix prefixes the text reported to the model when a tool fails.
const toolErrorPrefix = "An error occurred while running the tool. Please try again. Error: "

type toolCall struct {
	call core.FunctionCall
	tool tool.Tool
}

// toolExecutor runs a batch of function tool calls, possibly in parallel,
// producing exactly one response per call in call order. Tool failures and
// panics become error responses; only hook errors abort the batch.
type toolExecutor struct {
	maxParallel      int
	hooks            Hooks
	includeSensitive bool
}

func (e *toolExecutor) execute(rc *core.RunContext, a *agent.Agent, calls []toolCall, parallel bool) ([]core.FunctionResponse, error) {
	n := len(calls)
	if n == 0 {
		return nil, nil
	}

	results := make([]core.FunctionResponse, n)
	errs := make([]error, n)

	if !parallel || n == 1 {
		for i, tc := range calls {
			if err := rc.Err(); err != nil {
				return nil, err
			}

			results[i], errs[i] = e.executeSingle(rc, a, tc)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}

		return results, nil
	}

	maxPar := e.maxParallel
	if maxPar <= 0 || maxPar > n {
		maxPar = n
	}

	var wg sync.WaitGroup

	sem := make(chan struct{}, maxPar)
	batchStart := time.Now()

	for i := range calls {
		if rc.Err() != nil {
			break
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, tc toolCall) {
			defer wg.Done()
			defer func() { <-sem }()

			results[idx], errs[idx] = e.executeSingle(rc, a, tc)
		}(i, calls[i])
	}

	wg.Wait()

	if err := rc.Err(); err != nil {
		return nil, err
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	rc.LogDebug(
		"runner.tools.batch.complete",
		"agent", a.Name,
		"count", n,
		"parallelism", maxPar,
		"duration_ms", time.Since(batchStart).Milliseconds(),
	)

	return results, nil
}

func (e *toolExecutor) executeSingle(rc *core.RunContext, a *agent.Agent, tc toolCall) (core.FunctionResponse, error) {
	fc := tc.call

	input := ""
	if e.includeSensitive {
		input = fc.Arguments
	}

	spanCtx, span := tracing.FunctionSpan(rc.Context, fc.Name, input)
	defer span.Finish()

	toolRC := rc.WithContext(spanCtx)

	if err := e.hooks.OnToolStart(toolRC, a, tc.tool); err != nil {
		return core.FunctionResponse{}, fmt.Errorf("tool start hook: %w", err)
	}

	start := time.Now()

	result, err := e.callTool(toolRC, tc)

	resp := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
	if err != nil {
		resp.Response = nil
		resp.Error = toolErrorPrefix + err.Error()
		span.SetError("Error running tool", map[string]any{"tool_name": fc.Name, "error": err.Error()})
	}

	output := resp.Output()
	if e.includeSensitive {
		span.Data().(*tracing.FunctionSpanData).Output = output
	}

	rc.LogInfo(
		"runner.tool.executed",
		"agent", a.Name,
		"tool", fc.Name,
		"function_call_id", fc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", err != nil,
	)

	if err := e.hooks.OnToolEnd(toolRC, a, tc.tool, output); err != nil {
		return core.FunctionResponse{}, fmt.Errorf("tool end hook: %w", err)
	}

	return resp, nil
}

func (e *toolExecutor) callTool(rc *core.RunContext, tc toolCall) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError(r)
			rc.LogError("runner.tool.panic", "tool", tc.call.Name, "recover", r, "stack", string(debug.Stack()))
		}
	}()

	args, err := util.ParseArguments(tc.call.Arguments)
	if err != nil {
		return nil, &tool.ToolError{
			Tool:    tc.call.Name,
			Message: fmt.Sprintf("invalid JSON arguments: %v", err),
			Code:    tool.CodeValidation,
			Err:     err,
		}
	}

	return tc.tool.Call(core.NewToolContext(rc, tc.call.ID, tc.call.Name), args)
}

type panicErr struct {
	val any
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

func panicError(r any) error { return &panicErr{val: r} }
