package tracing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/hupe1980/agentkit/logging"
)

// LogProcessor writes trace events to a structured logger.
type LogProcessor struct {
	logger logging.Logger
}

// NewLogProcessor returns a processor logging to l (logging.Default() if nil).
func NewLogProcessor(l logging.Logger) *LogProcessor {
	return &LogProcessor{logger: l}
}

func (p *LogProcessor) log() logging.Logger {
	if p.logger != nil {
		return p.logger
	}
	return logging.Default()
}

// OnTraceStart implements Processor.
func (p *LogProcessor) OnTraceStart(t *Trace) {
	p.log().Debug("trace.start", "trace_id", t.ID(), "workflow", t.Name())
}

// OnTraceEnd implements Processor.
func (p *LogProcessor) OnTraceEnd(t *Trace) {
	p.log().Debug("trace.end", "trace_id", t.ID(), "workflow", t.Name(), "duration_ms", t.EndedAt().Sub(t.StartedAt()).Milliseconds())
}

// OnSpanStart implements Processor.
func (p *LogProcessor) OnSpanStart(s *Span) {
	p.log().Debug("span.start", "trace_id", s.TraceID(), "span_id", s.ID(), "parent_id", s.ParentID(), "type", s.Data().Type())
}

// OnSpanEnd implements Processor.
func (p *LogProcessor) OnSpanEnd(s *Span) {
	args := []any{"trace_id", s.TraceID(), "span_id", s.ID(), "type", s.Data().Type(), "duration_ms", s.EndedAt().Sub(s.StartedAt()).Milliseconds()}
	if err := s.Error(); err != nil {
		p.log().Warn("span.end", append(args, "error", err.Message)...)
		return
	}
	p.log().Debug("span.end", args...)
}

// Shutdown implements Processor.
func (p *LogProcessor) Shutdown(context.Context) error { return nil }

// MemoryProcessor keeps finished traces and spans in memory.
type MemoryProcessor struct {
	mu     sync.Mutex
	traces []*Trace
	spans  []*Span
}

// NewMemoryProcessor returns an empty MemoryProcessor.
func NewMemoryProcessor() *MemoryProcessor { return &MemoryProcessor{} }

// OnTraceStart implements Processor.
func (p *MemoryProcessor) OnTraceStart(*Trace) {}

// OnTraceEnd implements Processor.
func (p *MemoryProcessor) OnTraceEnd(t *Trace) {
	p.mu.Lock()
	p.traces = append(p.traces, t)
	p.mu.Unlock()
}

// OnSpanStart implements Processor.
func (p *MemoryProcessor) OnSpanStart(*Span) {}

// OnSpanEnd implements Processor.
func (p *MemoryProcessor) OnSpanEnd(s *Span) {
	p.mu.Lock()
	p.spans = append(p.spans, s)
	p.mu.Unlock()
}

// Shutdown implements Processor.
func (p *MemoryProcessor) Shutdown(context.Context) error { return nil }

// Traces returns the finished traces in completion order.
func (p *MemoryProcessor) Traces() []*Trace {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*Trace(nil), p.traces...)
}

// Spans returns the finished spans in completion order.
func (p *MemoryProcessor) Spans() []*Span {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*Span(nil), p.spans...)
}

// SpansOfType returns finished spans with the given type.
func (p *MemoryProcessor) SpansOfType(typ string) []*Span {
	var out []*Span
	for _, s := range p.Spans() {
		if s.Data().Type() == typ {
			out = append(out, s)
		}
	}
	return out
}

// Reset drops everything collected so far.
func (p *MemoryProcessor) Reset() {
	p.mu.Lock()
	p.traces, p.spans = nil, nil
	p.mu.Unlock()
}

// JSONLExporter writes each finished trace and span as one JSON line.
type JSONLExporter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	err    error
}

// NewJSONLExporter exports to w.
func NewJSONLExporter(w io.Writer) *JSONLExporter {
	return &JSONLExporter{enc: json.NewEncoder(w)}
}

// NewJSONLFileExporter appends to the file at path, creating it if needed.
// The file is closed by Shutdown.
func NewJSONLFileExporter(path string) (*JSONLExporter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	e := NewJSONLExporter(f)
	e.closer = f

	return e, nil
}

func (e *JSONLExporter) write(v map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.enc.Encode(v); err != nil && e.err == nil {
		e.err = err
	}
}

// OnTraceStart implements Processor.
func (e *JSONLExporter) OnTraceStart(*Trace) {}

// OnTraceEnd implements Processor.
func (e *JSONLExporter) OnTraceEnd(t *Trace) { e.write(t.Export()) }

// OnSpanStart implements Processor.
func (e *JSONLExporter) OnSpanStart(*Span) {}

// OnSpanEnd implements Processor.
func (e *JSONLExporter) OnSpanEnd(s *Span) { e.write(s.Export()) }

// Shutdown implements Processor. It reports the first write error, if any.
func (e *JSONLExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closer != nil {
		if err := e.closer.Close(); err != nil && e.err == nil {
			e.err = err
		}
		e.closer = nil
	}

	return e.err
}
