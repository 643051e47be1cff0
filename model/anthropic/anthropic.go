// Package anthropic provides a model wrapper for the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
	"github.com/hupe1980/agentkit/model"
)

const (
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultMaxTokens is sent when Settings.MaxTokens is unset; the API requires a value.
	DefaultMaxTokens = 4096

	// outputToolName names the synthetic tool used to obtain structured output.
	outputToolName = "final_output"
)

// Options configures the Anthropic model adapter.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string

	// RequestOptions are passed to the SDK client (NewModel only).
	RequestOptions []option.RequestOption
}

// Model wraps the Anthropic Messages API behind the generic model.Model interface.
type Model struct {
	client *anthropic.Client
	opts   Options
}

// NewModel creates a new Anthropic model using the official client. Without
// an APIKey the SDK falls back to ANTHROPIC_API_KEY.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{Model: DefaultModel}

	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(append(clientOpts, opts.RequestOptions...)...)

	return &Model{
		client: &client,
		opts:   opts,
	}
}

// NewModelFromClient creates a new Anthropic model from an existing client.
func NewModelFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Model {
	opts := Options{Model: DefaultModel}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Model{
		client: client,
		opts:   opts,
	}
}

// Generate implements unified streaming / non-streaming generation.
// It adapts the Anthropic Messages API (with tool use) into model.Response events.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req)

		if req.Stream {
			m.handleStreaming(ctx, params, out, errCh)
			return
		}

		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			errCh <- wrapError(err)
			return
		}

		model.Send(ctx, out, toResponse(resp))
	}()

	return out, errCh
}

func (m *Model) buildParams(req model.Request) anthropic.MessageNewParams {
	s := req.Settings

	maxTokens := int64(DefaultMaxTokens)
	if s.MaxTokens != nil {
		maxTokens = int64(*s.MaxTokens)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.opts.Model),
		Messages:  buildMessages(req.Contents),
		MaxTokens: maxTokens,
	}

	if s.Temperature != nil {
		params.Temperature = anthropic.Float(*s.Temperature)
	}

	if s.TopP != nil {
		params.TopP = anthropic.Float(*s.TopP)
	}

	system := req.Instructions
	for _, c := range req.Contents {
		if c.Role == core.RoleSystem {
			system = strings.TrimSpace(system + "\n\n" + c.Text())
		}
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	tools := buildTools(req.Tools)

	if req.OutputSchema != nil {
		tools = append(tools, outputTool(req.OutputSchema))
	}

	if len(tools) == 0 {
		return params
	}

	params.Tools = tools

	switch {
	case req.OutputSchema != nil && len(req.Tools) == 0:
		params.ToolChoice = anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: outputToolName},
		}
	case s.ToolChoice != "" || s.ParallelToolCalls != nil:
		params.ToolChoice = toolChoice(s)
	}

	return params
}

func toolChoice(s model.Settings) anthropic.ToolChoiceUnionParam {
	switch s.ToolChoice {
	case model.ToolChoiceNone:
		return anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	case model.ToolChoiceRequired:
		choice := &anthropic.ToolChoiceAnyParam{}
		if s.ParallelToolCalls != nil {
			choice.DisableParallelToolUse = anthropic.Bool(!*s.ParallelToolCalls)
		}

		return anthropic.ToolChoiceUnionParam{OfAny: choice}
	case "", model.ToolChoiceAuto:
		choice := &anthropic.ToolChoiceAutoParam{}
		if s.ParallelToolCalls != nil {
			choice.DisableParallelToolUse = anthropic.Bool(!*s.ParallelToolCalls)
		}

		return anthropic.ToolChoiceUnionParam{OfAuto: choice}
	default:
		choice := &anthropic.ToolChoiceToolParam{Name: s.ToolChoice}
		if s.ParallelToolCalls != nil {
			choice.DisableParallelToolUse = anthropic.Bool(!*s.ParallelToolCalls)
		}

		return anthropic.ToolChoiceUnionParam{OfTool: choice}
	}
}

// buildMessages converts agentkit contents to Anthropic messages. Tool
// responses travel as tool_result blocks inside user turns.
func buildMessages(contents []core.Content) []anthropic.MessageParam {
	var messages []anthropic.MessageParam

	for _, c := range model.NormalizeContents(contents) {
		switch c.Role {
		case core.RoleSystem:
			continue
		case core.RoleAssistant:
			if content := buildAssistantContent(c.Parts); len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
		case core.RoleTool:
			var content []anthropic.ContentBlockParamUnion
			for _, fr := range c.FunctionResponses() {
				content = append(content, anthropic.NewToolResultBlock(fr.ID, fr.Output(), fr.Error != ""))
			}

			if len(content) > 0 {
				messages = append(messages, anthropic.NewUserMessage(content...))
			}
		default:
			if text := c.Text(); text != "" {
				messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
			}
		}
	}

	return messages
}

// buildAssistantContent builds content for assistant messages.
func buildAssistantContent(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion

	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				content = append(content, anthropic.NewTextBlock(part.Text))
			}
		case core.FunctionCallPart:
			var input any = map[string]any{}
			if part.FunctionCall.Arguments != "" {
				if err := json.Unmarshal([]byte(part.FunctionCall.Arguments), &input); err != nil {
					input = part.FunctionCall.Arguments
				}
			}

			content = append(content, anthropic.NewToolUseBlock(
				part.FunctionCall.ID,
				input,
				part.FunctionCall.Name,
			))
		}
	}

	return content
}

// buildTools converts tool definitions to Anthropic tool params.
func buildTools(tools []model.ToolDefinition) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(tools))

	for i, t := range tools {
		result[i] = anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        t.Function.Name,
			Description: anthropic.String(t.Function.Description),
			InputSchema: inputSchema(t.Function.Parameters),
		}}
	}

	return result
}

func inputSchema(params map[string]any) anthropic.ToolInputSchemaParam {
	schema := anthropic.ToolInputSchemaParam{}
	if params == nil {
		return schema
	}

	if properties, exists := params["properties"]; exists {
		schema.Properties = properties
	}

	schema.Required = util.RequiredFields(params)

	return schema
}

func outputTool(schema *model.OutputSchema) anthropic.ToolUnionParam {
	description := schema.Description
	if description == "" {
		description = "Return the final answer as structured JSON."
	}

	return anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
		Name:        outputToolName,
		Description: anthropic.String(description),
		InputSchema: inputSchema(schema.Schema),
	}}
}

// toResponse converts a (possibly accumulated) message into a model.Response.
// Input given to the synthetic output tool becomes the text answer.
func toResponse(msg *anthropic.Message) model.Response {
	var parts []core.Part

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				parts = append(parts, core.TextPart{Text: block.Text})
			}
		case "tool_use":
			if block.Name == outputToolName {
				parts = append(parts, core.TextPart{Text: string(block.Input)})
				continue
			}

			parts = append(parts, core.FunctionCallPart{
				FunctionCall: core.FunctionCall{
					ID:        block.ID,
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}

	finishReason := "stop"
	if msg.StopReason != "" {
		finishReason = string(msg.StopReason)
	}

	in, outTokens := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)

	return model.Response{
		ID:           msg.ID,
		Partial:      false,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: finishReason,
		Usage: &model.TokenUsage{
			PromptTokens:     in,
			CompletionTokens: outTokens,
			TotalTokens:      in + outTokens,
		},
	}
}

func (m *Model) handleStreaming(
	ctx context.Context,
	params anthropic.MessageNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var acc anthropic.Message

	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			errCh <- wrapError(err)
			return
		}

		if event.Type != "content_block_delta" {
			continue
		}

		delta := event.AsContentBlockDelta()
		if textDelta := delta.Delta.AsTextDelta(); textDelta.Type == "text_delta" && textDelta.Text != "" {
			if !model.Send(ctx, out, model.Response{Partial: true, Content: core.NewAssistantContent(textDelta.Text)}) {
				return
			}
		}
	}

	if err := stream.Err(); err != nil {
		errCh <- wrapError(err)
		return
	}

	model.Send(ctx, out, toResponse(&acc))
}

// wrapError attaches the HTTP status of SDK API errors.
func wrapError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &model.ProviderError{Provider: "anthropic", StatusCode: apiErr.StatusCode, Err: err}
	}

	return &model.ProviderError{Provider: "anthropic", Err: err}
}

// Info returns metadata describing this Anthropic model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "anthropic",
		SupportsTools: true,
	}
}
