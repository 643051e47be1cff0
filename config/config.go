package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/agentkit/model"
)

// Supported providers.
const (
	ProviderOpenAICompatible = "openai-compatible"
	ProviderOpenAI           = "openai"
	ProviderGemini           = "gemini"
	ProviderAnthropic        = "anthropic"
)

// Environment variables read by Load.
const (
	EnvAPIKey          = "AGENTKIT_API_KEY"
	EnvProvider        = "AGENTKIT_PROVIDER"
	EnvBaseURL         = "AGENTKIT_BASE_URL"
	EnvModel           = "AGENTKIT_MODEL"
	EnvLogLevel        = "AGENTKIT_LOG_LEVEL"
	EnvLogFormat       = "AGENTKIT_LOG_FORMAT"
	EnvMaxTurns        = "AGENTKIT_MAX_TURNS"
	EnvTracingDisabled = "AGENTKIT_TRACING_DISABLED"
	EnvTraceFile       = "AGENTKIT_TRACE_FILE"
	EnvConfigPath      = "AGENTKIT_CONFIG"

	EnvGeminiAPIKey    = "GEMINI_API_KEY"
	EnvOpenAIAPIKey    = "OPENAI_API_KEY"
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
)

// DefaultCompatibleModel is the model used against the default
// OpenAI-compatible endpoint.
const DefaultCompatibleModel = "gemini-2.0-flash"

// Config holds everything needed to build a model and run agents.
type Config struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	MaxTurns                  int    `yaml:"max_turns"`
	TracingDisabled           bool   `yaml:"tracing_disabled"`
	TraceIncludeSensitiveData *bool  `yaml:"trace_include_sensitive_data"`
	TraceFile                 string `yaml:"trace_file"`
	WorkflowName              string `yaml:"workflow_name"`

	ModelSettings model.Settings `yaml:"model_settings"`
}

// Options configures Load.
type Options struct {
	// EnvFiles are read with godotenv. Missing files are skipped.
	EnvFiles []string
	// ConfigPath names a YAML file. Empty falls back to $AGENTKIT_CONFIG.
	ConfigPath string
	// Getenv reads the process environment.
	Getenv func(key string) string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider:  ProviderOpenAICompatible,
		LogLevel:  "info",
		LogFormat: "text",
		MaxTurns:  10,
	}
}

// Load assembles a Config. It does not validate; call Validate before use.
func Load(optFns ...func(o *Options)) (*Config, error) {
	opts := Options{
		EnvFiles: []string{".env"},
		Getenv:   os.Getenv,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	dotenv, err := readEnvFiles(opts.EnvFiles)
	if err != nil {
		return nil, err
	}

	lookup := func(key string) string {
		if v := opts.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	cfg := Default()

	path := opts.ConfigPath
	if path == "" {
		path = lookup(EnvConfigPath)
	}

	if path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	out := map[string]string{}

	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("read env file %s: %w", f, err)
		}

		for k, v := range vals {
			if _, seen := out[k]; !seen {
				out[k] = v
			}
		}
	}

	return out, nil
}

func (c *Config) mergeYAML(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(content, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv(lookup func(string) string) error {
	if v := lookup(EnvProvider); v != "" {
		c.Provider = strings.ToLower(strings.TrimSpace(v))
	}

	if v := lookup(EnvBaseURL); v != "" {
		c.BaseURL = v
	}

	if v := lookup(EnvModel); v != "" {
		c.Model = v
	}

	if v := lookup(EnvLogLevel); v != "" {
		c.LogLevel = v
	}

	if v := lookup(EnvLogFormat); v != "" {
		c.LogFormat = v
	}

	if v := lookup(EnvTraceFile); v != "" {
		c.TraceFile = v
	}

	if v := lookup(EnvMaxTurns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxTurns, err)
		}
		c.MaxTurns = n
	}

	if v := lookup(EnvTracingDisabled); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTracingDisabled, err)
		}
		c.TracingDisabled = b
	}

	if v := lookup(EnvAPIKey); v != "" {
		c.APIKey = v
	} else if c.APIKey == "" {
		for _, key := range apiKeyVars(c.Provider) {
			if v := lookup(key); v != "" {
				c.APIKey = v
				break
			}
		}
	}

	return nil
}

// apiKeyVars lists provider specific key variables in lookup order.
func apiKeyVars(provider string) []string {
	switch provider {
	case ProviderOpenAI:
		return []string{EnvOpenAIAPIKey}
	case ProviderGemini:
		return []string{EnvGeminiAPIKey}
	case ProviderAnthropic:
		return []string{EnvAnthropicAPIKey}
	default:
		return []string{EnvGeminiAPIKey, EnvOpenAIAPIKey}
	}
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAICompatible
	}

	if c.Provider == ProviderOpenAICompatible {
		if c.BaseURL == "" {
			c.BaseURL = geminiCompatibleBaseURL
		}
		if c.Model == "" {
			c.Model = DefaultCompatibleModel
		}
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAICompatible, ProviderOpenAI, ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown provider %q (must be %s, %s, %s or %s)",
			c.Provider, ProviderOpenAICompatible, ProviderOpenAI, ProviderGemini, ProviderAnthropic)
	}

	if c.APIKey == "" {
		return fmt.Errorf("missing API key: set %s or %s", strings.Join(apiKeyVars(c.Provider), " / "), EnvAPIKey)
	}

	if c.MaxTurns < 0 {
		return fmt.Errorf("max turns must not be negative, got %d", c.MaxTurns)
	}

	return nil
}

// IncludeSensitiveData reports whether traces carry model and tool payloads.
func (c *Config) IncludeSensitiveData() bool {
	return c.TraceIncludeSensitiveData == nil || *c.TraceIncludeSensitiveData
}
