package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestProvider() (*Provider, *MemoryProcessor) {
	mem := NewMemoryProcessor()
	return NewProvider(mem), mem
}

func withProvider(p *Provider) func(o *TraceOptions) {
	return func(o *TraceOptions) { o.Provider = p }
}

func TestTrace_NestedSpans(t *testing.T) {
	p, mem := newTestProvider()

	ctx, tr := NewTrace(context.Background(), "Math workflow", withProvider(p), func(o *TraceOptions) { o.GroupID = "conv-1" })
	assert.True(t, strings.HasPrefix(tr.ID(), "trace_"))
	assert.Same(t, tr, TraceFromContext(ctx))

	agentCtx, agentSpan := AgentSpan(ctx, "Math Agent", nil, []string{"add"}, "")
	_, fnSpan := FunctionSpan(agentCtx, "add", `{"a":1}`)
	fnSpan.Data().(*FunctionSpanData).Output = "2"
	fnSpan.Finish()
	agentSpan.Finish()

	_, custom := CustomSpan(ctx, "English span", map[string]any{"k": "v"})
	custom.SetError("failed", nil)
	custom.Finish()
	custom.Finish()

	tr.Finish()
	tr.Finish()

	require.Len(t, mem.Traces(), 1)
	spans := mem.Spans()
	require.Len(t, spans, 3)

	assert.Equal(t, agentSpan.ID(), fnSpan.ParentID())
	assert.Empty(t, agentSpan.ParentID())
	assert.Empty(t, custom.ParentID())
	assert.Equal(t, tr.ID(), fnSpan.TraceID())
	assert.Equal(t, "failed", custom.Error().Message)
	assert.Len(t, mem.SpansOfType(SpanTypeFunction), 1)
	assert.Equal(t, "conv-1", tr.Export()["group_id"])
}

func TestSpan_NoTraceIsNoop(t *testing.T) {
	ctx, span := CustomSpan(context.Background(), "orphan", nil)
	assert.False(t, span.Recording())
	assert.Nil(t, SpanFromContext(ctx))
	span.Finish()
	assert.Empty(t, span.ID())
}

func TestTrace_Disabled(t *testing.T) {
	p, mem := newTestProvider()

	ctx, tr := NewTrace(context.Background(), "off", withProvider(p), func(o *TraceOptions) { o.Disabled = true })
	_, span := CustomSpan(ctx, "inside", nil)
	span.Finish()
	tr.Finish()

	assert.True(t, tr.Disabled())
	assert.Empty(t, mem.Traces())
	assert.Empty(t, mem.Spans())

	p.SetDisabled(true)
	_, tr2 := NewTrace(context.Background(), "off too", withProvider(p))
	assert.True(t, tr2.Disabled())
}

func TestJSONLExporter(t *testing.T) {
	var buf bytes.Buffer
	exp := NewJSONLExporter(&buf)
	p := NewProvider(exp)

	ctx, tr := NewTrace(context.Background(), "Math workflow", withProvider(p))
	_, span := HandoffSpan(ctx, "Teacher", "Math Agent")
	span.Finish()
	tr.Finish()
	require.NoError(t, p.Shutdown(context.Background()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "trace.span", first["object"])
	data := first["span_data"].(map[string]any)
	assert.Equal(t, "handoff", data["type"])
	assert.Equal(t, "Math Agent", data["to_agent"])

	assert.Equal(t, "trace", second["object"])
	assert.Equal(t, "Math workflow", second["workflow_name"])
}

func TestJSONLFileExporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.jsonl")
	exp, err := NewJSONLFileExporter(path)
	require.NoError(t, err)

	p := NewProvider(exp, NewLogProcessor(nil))
	_, tr := NewTrace(context.Background(), "file", withProvider(p))
	tr.Finish()
	require.NoError(t, p.Shutdown(context.Background()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"workflow_name":"file"`)
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) OnTraceStart(t *Trace) { m.Called(t.Name()) }
func (m *mockProcessor) OnTraceEnd(t *Trace)   { m.Called(t.Name()) }
func (m *mockProcessor) OnSpanStart(s *Span)   { m.Called(s.Data().Type()) }
func (m *mockProcessor) OnSpanEnd(s *Span)     { m.Called(s.Data().Type()) }

func (m *mockProcessor) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestProvider_RemoveProcessor(t *testing.T) {
	proc := &mockProcessor{}
	proc.On("OnTraceStart", "first").Once()
	proc.On("OnSpanStart", SpanTypeCustom).Once()
	proc.On("OnSpanEnd", SpanTypeCustom).Once()
	proc.On("OnTraceEnd", "first").Once()

	p := NewProvider()
	p.AddProcessor(proc)

	ctx, tr := NewTrace(context.Background(), "first", withProvider(p))
	_, span := CustomSpan(ctx, "step", nil)
	span.Finish()
	tr.Finish()

	assert.True(t, p.RemoveProcessor(proc))
	assert.False(t, p.RemoveProcessor(proc))

	_, second := NewTrace(context.Background(), "second", withProvider(p))
	second.Finish()

	proc.AssertExpectations(t)
	proc.AssertNotCalled(t, "OnTraceStart", "second")
}
