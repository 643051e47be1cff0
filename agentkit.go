// Package agentkit wires the pieces an application usually needs before its
// first run: configuration, a model provider, a logger, trace processors
// and a Runner carrying all of them.
//
// Most programs can do
//
//	kit, err := agentkit.New(ctx)
//	if err != nil { ... }
//	defer kit.Close(ctx)
//
//	result, err := kit.Run(ctx, agent.New("Assistant", agent.WithInstructions("Be brief.")), "hi")
//
// Agents without their own model resolve theirs through the kit's provider,
// so ModelName works against the configured endpoint.
package agentkit

import (
	"context"

	"github.com/hupe1980/agentkit/agent"
	"github.com/hupe1980/agentkit/config"
	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/runner"
	"github.com/hupe1980/agentkit/session"
)

// Options configures a Kit.
type Options struct {
	// Config is used as is when set. Otherwise config.Load runs with
	// ConfigOptions.
	Config        *config.Config
	ConfigOptions []func(o *config.Options)

	// Provider overrides the provider built from the configuration.
	Provider model.Provider

	// Logger defaults to config.NewLogger.
	Logger logging.Logger

	// InstallTracing registers the configured trace processors on the
	// default tracing provider.
	InstallTracing bool

	Session session.Session
	Hooks   runner.Hooks

	// RunOptions are applied after the configuration.
	RunOptions []func(c *runner.RunConfig)
}

// Kit bundles a configured Runner with the resources it owns.
type Kit struct {
	config   *config.Config
	provider model.Provider
	logger   logging.Logger
	runner   *runner.Runner
	shutdown func(ctx context.Context) error
}

// New creates a Kit. Configuration errors, such as a missing API key, are
// returned here rather than on the first run.
func New(ctx context.Context, optFns ...func(o *Options)) (*Kit, error) {
	opts := Options{InstallTracing: true}

	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(opts.ConfigOptions...); err != nil {
			return nil, err
		}
	}

	provider := opts.Provider
	if provider == nil {
		var err error
		if provider, err = config.NewProvider(ctx, cfg); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = config.NewLogger(cfg).WithComponent("agentkit")
	}

	shutdown := func(context.Context) error { return nil }

	if opts.InstallTracing {
		fn, err := config.InstallTracing(cfg, logger)
		if err != nil {
			return nil, err
		}
		shutdown = fn
	}

	runOpts := []func(c *runner.RunConfig){
		cfg.RunOptions(),
		func(c *runner.RunConfig) {
			c.ModelProvider = provider
			c.Logger = logger
			c.Session = opts.Session
			c.Hooks = opts.Hooks
		},
	}
	runOpts = append(runOpts, opts.RunOptions...)

	return &Kit{
		config:   cfg,
		provider: provider,
		logger:   logger,
		runner:   runner.New(runOpts...),
		shutdown: shutdown,
	}, nil
}

// Config returns the resolved configuration.
func (k *Kit) Config() *config.Config { return k.config }

// Logger returns the logger handed to every run.
func (k *Kit) Logger() logging.Logger { return k.logger }

// Runner returns the underlying Runner.
func (k *Kit) Runner() *runner.Runner { return k.runner }

// Model resolves a model by name through the kit's provider. An empty name
// yields the configured model.
func (k *Kit) Model(name string) (model.Model, error) { return k.provider.Model(name) }

// Run executes a with a single user message.
func (k *Kit) Run(ctx context.Context, a *agent.Agent, input string, optFns ...func(c *runner.RunConfig)) (*runner.Result, error) {
	return k.runner.Run(ctx, a, input, optFns...)
}

// RunContents executes a with a full input conversation.
func (k *Kit) RunContents(ctx context.Context, a *agent.Agent, input []core.Content, optFns ...func(c *runner.RunConfig)) (*runner.Result, error) {
	return k.runner.RunContents(ctx, a, input, optFns...)
}

// Close flushes and closes the trace processors installed by New.
func (k *Kit) Close(ctx context.Context) error {
	return k.shutdown(ctx)
}
