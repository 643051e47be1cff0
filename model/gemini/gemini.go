// Package gemini provides an implementation of model.Model on top of the
// native Google GenAI SDK (Gemini API backend).
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
	"github.com/hupe1980/agentkit/model"
)

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gemini-2.0-flash"

const (
	roleUser  = "user"
	roleModel = "model"
)

// Options configures the Gemini model adapter.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string
}

// Model wraps genai's GenerateContent behind the generic model.Model interface.
type Model struct {
	client *genai.Client
	opts   Options
}

// NewModel creates a Gemini API client and wraps it. Without an APIKey the
// SDK reads GEMINI_API_KEY / GOOGLE_API_KEY.
func NewModel(ctx context.Context, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{Model: DefaultModel}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}

	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient wraps an existing genai client.
func NewModelFromClient(client *genai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{Model: DefaultModel}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{client: client, opts: opts}
}

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		contents := buildContents(req.Contents)
		config := buildConfig(req)

		if req.Stream {
			m.handleStreaming(ctx, contents, config, out, errCh)
			return
		}

		resp, err := m.client.Models.GenerateContent(ctx, m.opts.Model, contents, config)
		if err != nil {
			errCh <- wrapError(err)
			return
		}

		final, err := toResponse(resp)
		if err != nil {
			errCh <- err
			return
		}

		model.Send(ctx, out, final)
	}()

	return out, errCh
}

func (m *Model) handleStreaming(
	ctx context.Context,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
	out chan<- model.Response,
	errCh chan<- error,
) {
	var (
		parts        []*genai.Part
		finishReason genai.FinishReason
		usage        *genai.GenerateContentResponseUsageMetadata
		id           string
	)

	for resp, err := range m.client.Models.GenerateContentStream(ctx, m.opts.Model, contents, config) {
		if err != nil {
			errCh <- wrapError(err)
			return
		}

		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			errCh <- fmt.Errorf("gemini: prompt blocked: %s", resp.PromptFeedback.BlockReason)
			return
		}

		if resp.ResponseID != "" {
			id = resp.ResponseID
		}

		if resp.UsageMetadata != nil {
			usage = resp.UsageMetadata
		}

		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}

		cand := resp.Candidates[0]
		if cand.FinishReason != "" {
			finishReason = cand.FinishReason
		}

		for _, p := range cand.Content.Parts {
			parts = append(parts, p)
			if p.Text != "" {
				if !model.Send(ctx, out, model.Response{Partial: true, Content: core.NewAssistantContent(p.Text)}) {
					return
				}
			}
		}
	}

	final, err := toResponse(&genai.GenerateContentResponse{
		ResponseID: id,
		Candidates: []*genai.Candidate{{
			Content:      &genai.Content{Role: roleModel, Parts: parts},
			FinishReason: finishReason,
		}},
		UsageMetadata: usage,
	})
	if err != nil {
		errCh <- err
		return
	}

	model.Send(ctx, out, final)
}

// buildContents converts agentkit contents to genai contents. Tool results
// travel as user turns carrying FunctionResponse parts.
func buildContents(contents []core.Content) []*genai.Content {
	var result []*genai.Content

	for _, c := range model.NormalizeContents(contents) {
		var parts []*genai.Part

		for _, p := range c.Parts {
			switch part := p.(type) {
			case core.TextPart:
				if part.Text != "" {
					parts = append(parts, &genai.Part{Text: part.Text})
				}
			case core.DataPart:
				if b, err := json.Marshal(part.Data); err == nil {
					parts = append(parts, &genai.Part{Text: string(b)})
				}
			case core.FunctionCallPart:
				args, err := util.ParseArguments(part.FunctionCall.Arguments)
				if err != nil {
					args = map[string]any{"input": part.FunctionCall.Arguments}
				}

				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   part.FunctionCall.ID,
					Name: part.FunctionCall.Name,
					Args: args,
				}})
			case core.FunctionResponsePart:
				fr := part.FunctionResponse

				response := map[string]any{"output": fr.Response}
				if fr.Error != "" {
					response = map[string]any{"error": fr.Error}
				}

				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       fr.ID,
					Name:     fr.Name,
					Response: response,
				}})
			}
		}

		if len(parts) == 0 {
			continue
		}

		role := roleUser
		if c.Role == core.RoleAssistant {
			role = roleModel
		}

		result = append(result, &genai.Content{Role: role, Parts: parts})
	}

	return result
}

func buildConfig(req model.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	var system []string
	if req.Instructions != "" {
		system = append(system, req.Instructions)
	}

	for _, c := range req.Contents {
		if c.Role == core.RoleSystem {
			system = append(system, c.Text())
		}
	}

	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}

	s := req.Settings
	if s.Temperature != nil {
		config.Temperature = ptr(float32(*s.Temperature))
	}

	if s.TopP != nil {
		config.TopP = ptr(float32(*s.TopP))
	}

	if s.MaxTokens != nil {
		config.MaxOutputTokens = int32(*s.MaxTokens)
	}

	if s.FrequencyPenalty != nil {
		config.FrequencyPenalty = ptr(float32(*s.FrequencyPenalty))
	}

	if s.PresencePenalty != nil {
		config.PresencePenalty = ptr(float32(*s.PresencePenalty))
	}

	if req.OutputSchema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = convertSchema(req.OutputSchema.Schema)
	}

	if len(req.Tools) > 0 {
		funcs := make([]*genai.FunctionDeclaration, len(req.Tools))
		for i, t := range req.Tools {
			funcs[i] = &genai.FunctionDeclaration{
				Name:        t.Function.Name,
				Description: t.Function.Description,
				Parameters:  convertSchema(t.Function.Parameters),
			}
		}

		config.Tools = []*genai.Tool{{FunctionDeclarations: funcs}}

		if s.ToolChoice != "" {
			config.ToolConfig = toolConfig(s.ToolChoice)
		}
	}

	return config
}

func toolConfig(choice string) *genai.ToolConfig {
	fc := &genai.FunctionCallingConfig{}

	switch choice {
	case model.ToolChoiceNone:
		fc.Mode = genai.FunctionCallingConfigModeNone
	case model.ToolChoiceRequired:
		fc.Mode = genai.FunctionCallingConfigModeAny
	case model.ToolChoiceAuto:
		fc.Mode = genai.FunctionCallingConfigModeAuto
	default:
		fc.Mode = genai.FunctionCallingConfigModeAny
		fc.AllowedFunctionNames = []string{choice}
	}

	return &genai.ToolConfig{FunctionCallingConfig: fc}
}

// convertSchema converts a JSON schema map into a genai schema.
func convertSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}

	result := &genai.Schema{}

	switch schema["type"] {
	case "string":
		result.Type = genai.TypeString
	case "number":
		result.Type = genai.TypeNumber
	case "integer":
		result.Type = genai.TypeInteger
	case "boolean":
		result.Type = genai.TypeBoolean
	case "array":
		result.Type = genai.TypeArray
	case "object":
		result.Type = genai.TypeObject
	}

	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}

	if enumVal, ok := schema["enum"].([]any); ok {
		for _, e := range enumVal {
			if s, ok := e.(string); ok {
				result.Enum = append(result.Enum, s)
			}
		}
	}

	if props, ok := schema["properties"].(map[string]any); ok {
		result.Properties = make(map[string]*genai.Schema, len(props))
		for name, propSchema := range props {
			if propMap, ok := propSchema.(map[string]any); ok {
				result.Properties[name] = convertSchema(propMap)
			}
		}
	}

	result.Required = util.RequiredFields(schema)

	if items, ok := schema["items"].(map[string]any); ok {
		result.Items = convertSchema(items)
	}

	return result
}

// toResponse converts a genai response. Function calls without an ID get one
// so their responses can be matched.
func toResponse(resp *genai.GenerateContentResponse) (model.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return model.Response{}, errors.New("gemini: no candidates returned")
	}

	cand := resp.Candidates[0]

	var parts []core.Part

	if cand.Content != nil {
		var text strings.Builder

		for _, p := range cand.Content.Parts {
			if p.Text != "" && !p.Thought {
				text.WriteString(p.Text)
			}
		}

		if text.Len() > 0 {
			parts = append(parts, core.TextPart{Text: text.String()})
		}

		for _, p := range cand.Content.Parts {
			if p.FunctionCall == nil {
				continue
			}

			id := p.FunctionCall.ID
			if id == "" {
				id = "call_" + core.NewID()
			}

			args, err := json.Marshal(p.FunctionCall.Args)
			if err != nil {
				return model.Response{}, fmt.Errorf("gemini: encode function args: %w", err)
			}

			parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
				ID:        id,
				Name:      p.FunctionCall.Name,
				Arguments: string(args),
			}})
		}
	}

	out := model.Response{
		ID:           resp.ResponseID,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: strings.ToLower(string(cand.FinishReason)),
	}

	if resp.UsageMetadata != nil {
		out.Usage = &model.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return out, nil
}

// wrapError attaches the HTTP status of SDK API errors.
func wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &model.ProviderError{Provider: "gemini", StatusCode: apiErr.Code, Err: err}
	}

	return &model.ProviderError{Provider: "gemini", Err: err}
}

func ptr[T any](v T) *T { return &v }

// Info returns metadata describing this Gemini model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "gemini",
		SupportsTools: true,
	}
}
