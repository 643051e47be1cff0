package tracing

import (
	"context"
	"errors"
	"sync"
)

// Processor receives trace and span lifecycle notifications. Implementations
// must be safe for concurrent use; spans of parallel tool calls end concurrently.
type Processor interface {
	OnTraceStart(t *Trace)
	OnTraceEnd(t *Trace)
	OnSpanStart(s *Span)
	OnSpanEnd(s *Span)
	Shutdown(ctx context.Context) error
}

// Provider fans trace events out to its processors.
type Provider struct {
	mu         sync.RWMutex
	processors []Processor
	disabled   bool
}

// NewProvider creates a provider with the given processors.
func NewProvider(processors ...Processor) *Provider {
	return &Provider{processors: processors}
}

var defaultProvider = NewProvider()

// DefaultProvider returns the process wide provider used by NewTrace.
func DefaultProvider() *Provider { return defaultProvider }

// AddProcessor registers p on the default provider.
func AddProcessor(p Processor) { defaultProvider.AddProcessor(p) }

// RemoveProcessor unregisters p from the default provider.
func RemoveProcessor(p Processor) bool { return defaultProvider.RemoveProcessor(p) }

// SetProcessors replaces the default provider's processors.
func SetProcessors(ps ...Processor) { defaultProvider.SetProcessors(ps...) }

// SetDisabled globally turns tracing off (or back on).
func SetDisabled(disabled bool) { defaultProvider.SetDisabled(disabled) }

// AddProcessor registers an additional processor.
func (p *Provider) AddProcessor(proc Processor) {
	p.mu.Lock()
	p.processors = append(p.processors, proc)
	p.mu.Unlock()
}

// RemoveProcessor unregisters proc without shutting it down. It reports
// whether proc was registered. Processors are compared by identity.
func (p *Provider) RemoveProcessor(proc Processor) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, existing := range p.processors {
		if existing == proc {
			p.processors = append(p.processors[:i:i], p.processors[i+1:]...)
			return true
		}
	}

	return false
}

// SetProcessors replaces all processors.
func (p *Provider) SetProcessors(ps ...Processor) {
	p.mu.Lock()
	p.processors = append([]Processor(nil), ps...)
	p.mu.Unlock()
}

// SetDisabled turns recording of new traces off or on.
func (p *Provider) SetDisabled(disabled bool) {
	p.mu.Lock()
	p.disabled = disabled
	p.mu.Unlock()
}

// Disabled reports whether new traces are recorded.
func (p *Provider) Disabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.disabled
}

// Shutdown flushes and closes every processor.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error

	for _, proc := range p.snapshot() {
		if err := proc.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (p *Provider) snapshot() []Processor {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]Processor(nil), p.processors...)
}

func (p *Provider) onTraceStart(t *Trace) {
	for _, proc := range p.snapshot() {
		proc.OnTraceStart(t)
	}
}

func (p *Provider) onTraceEnd(t *Trace) {
	for _, proc := range p.snapshot() {
		proc.OnTraceEnd(t)
	}
}

func (p *Provider) onSpanStart(s *Span) {
	for _, proc := range p.snapshot() {
		proc.OnSpanStart(s)
	}
}

func (p *Provider) onSpanEnd(s *Span) {
	for _, proc := range p.snapshot() {
		proc.OnSpanEnd(s)
	}
}
