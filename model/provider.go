package model

import "fmt"

// Provider resolves a model by name, for agents that only name their model.
type Provider interface {
	Model(name string) (Model, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(name string) (Model, error)

// Model implements Provider.
func (f ProviderFunc) Model(name string) (Model, error) { return f(name) }

// StaticProvider serves a fixed set of models by name, falling back to
// Default when set.
type StaticProvider struct {
	Models  map[string]Model
	Default Model
}

// Model implements Provider.
func (p *StaticProvider) Model(name string) (Model, error) {
	if m, ok := p.Models[name]; ok {
		return m, nil
	}

	if p.Default != nil {
		return p.Default, nil
	}

	return nil, fmt.Errorf("unknown model %q", name)
}
