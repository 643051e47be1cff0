package model

// Tool choice values understood by every provider. Any other non-empty value
// names a specific tool the model must call.
const (
	ToolChoiceAuto     = "auto"
	ToolChoiceRequired = "required"
	ToolChoiceNone     = "none"
)

// Settings tunes a single model call. Nil fields leave the provider default
// in place.
type Settings struct {
	Temperature       *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP              *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	MaxTokens         *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	FrequencyPenalty  *float64 `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	PresencePenalty   *float64 `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty"`
	ToolChoice        string   `json:"tool_choice,omitempty" yaml:"tool_choice,omitempty"`
	ParallelToolCalls *bool    `json:"parallel_tool_calls,omitempty" yaml:"parallel_tool_calls,omitempty"`
}

// Resolve returns s overlaid with the non-empty fields of override.
func (s Settings) Resolve(override *Settings) Settings {
	if override == nil {
		return s
	}

	out := s

	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}

	if override.TopP != nil {
		out.TopP = override.TopP
	}

	if override.MaxTokens != nil {
		out.MaxTokens = override.MaxTokens
	}

	if override.FrequencyPenalty != nil {
		out.FrequencyPenalty = override.FrequencyPenalty
	}

	if override.PresencePenalty != nil {
		out.PresencePenalty = override.PresencePenalty
	}

	if override.ToolChoice != "" {
		out.ToolChoice = override.ToolChoice
	}

	if override.ParallelToolCalls != nil {
		out.ParallelToolCalls = override.ParallelToolCalls
	}

	return out
}

// AllowsParallelToolCalls reports whether tool calls may run concurrently.
// Unset means yes.
func (s Settings) AllowsParallelToolCalls() bool {
	return s.ParallelToolCalls == nil || *s.ParallelToolCalls
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
