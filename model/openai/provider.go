package openai

import (
	"github.com/openai/openai-go"

	"github.com/hupe1980/agentkit/model"
)

// Provider resolves model names against a single OpenAI-compatible client.
type Provider struct {
	client       *openai.Client
	defaultModel string
}

// NewProvider returns a model.Provider backed by client. Empty names resolve
// to defaultModel.
func NewProvider(client *openai.Client, defaultModel string) *Provider {
	if defaultModel == "" {
		defaultModel = DefaultModel
	}

	return &Provider{client: client, defaultModel: defaultModel}
}

// Model implements model.Provider.
func (p *Provider) Model(name string) (model.Model, error) {
	if name == "" {
		name = p.defaultModel
	}

	return NewModelFromClient(p.client, func(o *Options) { o.Model = name }), nil
}
