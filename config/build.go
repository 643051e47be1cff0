package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hupe1980/agentkit/logging"
	"github.com/hupe1980/agentkit/model"
	"github.com/hupe1980/agentkit/model/anthropic"
	"github.com/hupe1980/agentkit/model/gemini"
	"github.com/hupe1980/agentkit/model/openai"
	"github.com/hupe1980/agentkit/runner"
	"github.com/hupe1980/agentkit/tracing"
)

const geminiCompatibleBaseURL = openai.GeminiBaseURL

// NewModel builds the configured model.
func NewModel(ctx context.Context, cfg *Config) (model.Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Provider {
	case ProviderOpenAICompatible, ProviderOpenAI:
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	case ProviderGemini:
		m, err := gemini.NewModel(ctx, func(o *gemini.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}
		return m, nil
	case ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// NewProvider builds a model.Provider serving any model name of the
// configured OpenAI-compatible endpoint. Other providers serve the
// configured model for every name.
func NewProvider(ctx context.Context, cfg *Config) (model.Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Provider == ProviderOpenAICompatible || cfg.Provider == ProviderOpenAI {
		return openai.NewProvider(openai.NewClient(cfg.APIKey, cfg.BaseURL), cfg.Model), nil
	}

	m, err := NewModel(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &model.StaticProvider{Default: m}, nil
}

// NewLogger builds a logger writing to stderr at the configured level.
func NewLogger(cfg *Config) *logging.KitLogger {
	lc := logging.DefaultLoggerConfig()
	lc.Level = logging.ParseLevel(cfg.LogLevel)
	lc.Output = os.Stderr
	lc.AddSource = false

	if cfg.LogFormat != "" {
		lc.Format = strings.ToLower(cfg.LogFormat)
	}

	return logging.NewLogger(lc)
}

// RunOptions applies the configuration to a run.
func (c *Config) RunOptions() func(rc *runner.RunConfig) {
	return func(rc *runner.RunConfig) {
		rc.MaxTurns = c.MaxTurns
		rc.TracingDisabled = c.TracingDisabled
		rc.TraceIncludeSensitiveData = c.IncludeSensitiveData()

		if c.WorkflowName != "" {
			rc.WorkflowName = c.WorkflowName
		}

		settings := c.ModelSettings
		if settings != (model.Settings{}) {
			rc.ModelSettings = &settings
		}
	}
}

// InstallTracing registers trace processors on the default tracing provider:
// a log processor using logger and, when TraceFile is set, a JSONL exporter.
// The returned function unregisters, flushes and closes them, so a closed
// exporter never sees later traces.
func InstallTracing(cfg *Config, logger logging.Logger) (func(ctx context.Context) error, error) {
	tracing.SetDisabled(cfg.TracingDisabled)

	if cfg.TracingDisabled {
		return func(context.Context) error { return nil }, nil
	}

	processors := []tracing.Processor{tracing.NewLogProcessor(logger)}

	if cfg.TraceFile != "" {
		exp, err := tracing.NewJSONLFileExporter(cfg.TraceFile)
		if err != nil {
			return nil, err
		}
		processors = append(processors, exp)
	}

	for _, p := range processors {
		tracing.AddProcessor(p)
	}

	return func(ctx context.Context) error {
		var errs []error
		for _, p := range processors {
			tracing.RemoveProcessor(p)
			if err := p.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}, nil
}
