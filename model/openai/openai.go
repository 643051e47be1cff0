// Package openai provides an implementation of model.Model using the OpenAI
// Chat Completions API (including streaming + function/tool calling). It
// works against any OpenAI-compatible endpoint, such as Gemini's.
package openai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
	"github.com/hupe1980/agentkit/model"
)

const (
	// DefaultModel is used when Options.Model is empty.
	DefaultModel = openai.ChatModelGPT4oMini

	// GeminiBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// aggCall aggregates partial tool call streaming deltas (id, name, arguments)
// allowing reconstruction of complete function call parts once the stream ends.
type aggCall struct{ id, name, args string }

// Options configure the OpenAI model adapter.
type Options struct {
	Model   string
	APIKey  string
	BaseURL string

	// RequestOptions are passed to the SDK client (NewModel only).
	RequestOptions []option.RequestOption
}

// Model wraps the OpenAI Chat Completions API behind the generic model.Model interface.
type Model struct {
	client *openai.Client
	opts   Options
}

// NewModel creates a new OpenAI model using the official client. Without an
// APIKey the SDK falls back to OPENAI_API_KEY.
func NewModel(optFns ...func(o *Options)) *Model {
	opts := Options{Model: DefaultModel}
	for _, fn := range optFns {
		fn(&opts)
	}

	client := openai.NewClient(clientOptions(opts)...)

	return &Model{client: &client, opts: opts}
}

// NewModelFromClient creates a new OpenAI model from an existing client.
func NewModelFromClient(client *openai.Client, optFns ...func(o *Options)) *Model {
	opts := Options{Model: DefaultModel}
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	return &Model{client: client, opts: opts}
}

// NewClient builds an SDK client for the given key and base URL.
func NewClient(apiKey, baseURL string, extra ...option.RequestOption) *openai.Client {
	client := openai.NewClient(clientOptions(Options{APIKey: apiKey, BaseURL: baseURL, RequestOptions: extra})...)
	return &client
}

func clientOptions(opts Options) []option.RequestOption {
	var reqOpts []option.RequestOption
	if opts.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(opts.APIKey))
	}

	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return append(reqOpts, opts.RequestOptions...)
}

// Generate implements unified streaming / non-streaming generation.
// It adapts OpenAI Chat Completions (with function/tool calling) into model.Response events.
func (m *Model) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	out := make(chan model.Response, 32)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		params := m.buildParams(req, buildMessages(req))

		if req.Stream {
			m.handleStreaming(ctx, params, out, errCh)
			return
		}

		m.handleNonStreaming(ctx, params, out, errCh)
	}()

	return out, errCh
}

// buildMessages converts normalized contents into OpenAI chat messages.
// Tool responses become tool messages directly after the assistant turn
// that requested them.
func buildMessages(req model.Request) []openai.ChatCompletionMessageParamUnion {
	var messages []openai.ChatCompletionMessageParamUnion

	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, c := range model.NormalizeContents(req.Contents) {
		text := c.Text()

		switch c.Role {
		case core.RoleSystem:
			messages = append(messages, openai.SystemMessage(text))
		case core.RoleUser:
			messages = append(messages, openai.UserMessage(text))
		case core.RoleTool:
			for _, fr := range c.FunctionResponses() {
				messages = append(messages, openai.ToolMessage(fr.Output(), fr.ID))
			}
		case core.RoleAssistant:
			toolCalls := extractToolCalls(c)
			if len(toolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(text))
				continue
			}

			msg := openai.ChatCompletionAssistantMessageParam{ToolCalls: toolCalls}
			if text != "" {
				msg.Content.OfString = openai.String(text)
			}

			messages = append(messages, openai.ChatCompletionMessageParamUnion{OfAssistant: &msg})
		default:
			if text != "" {
				messages = append(messages, openai.UserMessage(text))
			}
		}
	}

	return messages
}

// extractToolCalls converts function call parts into OpenAI tool calls.
func extractToolCalls(c core.Content) []openai.ChatCompletionMessageToolCallParam {
	var toolCalls []openai.ChatCompletionMessageToolCallParam

	for _, fc := range c.FunctionCalls() {
		args := fc.Arguments
		if args == "" {
			args = "{}"
		}

		toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
			ID: fc.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      fc.Name,
				Arguments: args,
			},
		})
	}

	return toolCalls
}

// buildParams assembles the OpenAI request parameters from settings, tools
// and the optional output schema.
func (m *Model) buildParams(
	req model.Request,
	messages []openai.ChatCompletionMessageParamUnion,
) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    m.opts.Model,
	}

	s := req.Settings
	if s.Temperature != nil {
		params.Temperature = openai.Float(*s.Temperature)
	}

	if s.TopP != nil {
		params.TopP = openai.Float(*s.TopP)
	}

	if s.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*s.MaxTokens))
	}

	if s.FrequencyPenalty != nil {
		params.FrequencyPenalty = openai.Float(*s.FrequencyPenalty)
	}

	if s.PresencePenalty != nil {
		params.PresencePenalty = openai.Float(*s.PresencePenalty)
	}

	if req.OutputSchema != nil {
		params.ResponseFormat = responseFormat(req.OutputSchema)
	}

	if req.Stream {
		params.StreamOptions = openai.ChatCompletionStreamOptionsParam{IncludeUsage: openai.Bool(true)}
	}

	if len(req.Tools) == 0 {
		return params
	}

	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  shared.FunctionParameters(tdef.Function.Parameters),
			},
		}
	}

	params.Tools = tools

	if s.ToolChoice != "" {
		params.ToolChoice = toolChoice(s.ToolChoice)
	}

	if s.ParallelToolCalls != nil {
		params.ParallelToolCalls = openai.Bool(*s.ParallelToolCalls)
	}

	return params
}

func toolChoice(choice string) openai.ChatCompletionToolChoiceOptionUnionParam {
	switch choice {
	case model.ToolChoiceAuto, model.ToolChoiceRequired, model.ToolChoiceNone:
		return openai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openai.String(choice)}
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: choice},
			},
		}
	}
}

func responseFormat(schema *model.OutputSchema) openai.ChatCompletionNewParamsResponseFormatUnion {
	name := schema.Name
	if name == "" {
		name = "final_output"
	}

	strict := schema.Strict && util.IsStrictCompatible(schema.Schema)

	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: openai.String(schema.Description),
				Schema:      schema.Schema,
				Strict:      openai.Bool(strict),
			},
		},
	}
}

// handleStreaming processes streaming responses and forwards partial / final events.
func (m *Model) handleStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		textBuilder  strings.Builder
		finishReason string
		usage        *model.TokenUsage
		id           string
	)

	toolAgg := map[int64]*aggCall{}

	for stream.Next() {
		ck := stream.Current()
		if ck.ID != "" {
			id = ck.ID
		}

		if ck.Usage.TotalTokens > 0 {
			usage = &model.TokenUsage{
				PromptTokens:     int(ck.Usage.PromptTokens),
				CompletionTokens: int(ck.Usage.CompletionTokens),
				TotalTokens:      int(ck.Usage.TotalTokens),
			}
		}

		for _, ch := range ck.Choices {
			if !emitTextDelta(ctx, ch, &textBuilder, out) {
				return
			}
			aggregateToolCallDeltas(ch, toolAgg)

			if ch.FinishReason != "" {
				finishReason = string(ch.FinishReason)
			}
		}
	}

	if err := stream.Err(); err != nil {
		errCh <- wrapError(err)
		return
	}

	model.Send(ctx, out, model.Response{
		ID:           id,
		Partial:      false,
		Content:      core.Content{Role: core.RoleAssistant, Parts: finalParts(&textBuilder, toolAgg)},
		FinishReason: finishReason,
		Usage:        usage,
	})
}

// emitTextDelta forwards a text delta as a partial response. It returns
// false once ctx is done.
func emitTextDelta(
	ctx context.Context,
	ch openai.ChatCompletionChunkChoice,
	builder *strings.Builder,
	out chan<- model.Response,
) bool {
	if ch.Delta.Content == "" {
		return true
	}

	builder.WriteString(ch.Delta.Content)

	return model.Send(ctx, out, model.Response{
		Partial: true,
		Content: core.NewAssistantContent(ch.Delta.Content),
	})
}

func aggregateToolCallDeltas(ch openai.ChatCompletionChunkChoice, agg map[int64]*aggCall) {
	for _, tc := range ch.Delta.ToolCalls {
		ac, ok := agg[tc.Index]
		if !ok {
			ac = &aggCall{}
			agg[tc.Index] = ac
		}

		if tc.ID != "" {
			ac.id = tc.ID
		}

		if tc.Function.Name != "" {
			ac.name = tc.Function.Name
		}

		ac.args += tc.Function.Arguments
	}
}

// finalParts joins streamed text and tool calls, tool calls in index order.
func finalParts(builder *strings.Builder, toolAgg map[int64]*aggCall) []core.Part {
	parts := make([]core.Part, 0, len(toolAgg)+1)
	if builder.Len() > 0 {
		parts = append(parts, core.TextPart{Text: builder.String()})
	}

	indexes := make([]int64, 0, len(toolAgg))
	for idx := range toolAgg {
		indexes = append(indexes, idx)
	}

	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })

	for _, idx := range indexes {
		ac := toolAgg[idx]
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        ac.id,
			Name:      ac.name,
			Arguments: ac.args,
		}})
	}

	return parts
}

// handleNonStreaming processes a normal (non-streaming) completion.
func (m *Model) handleNonStreaming(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
	out chan<- model.Response,
	errCh chan<- error,
) {
	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		errCh <- wrapError(err)
		return
	}

	if len(resp.Choices) == 0 {
		errCh <- fmt.Errorf("openai: no choices returned")
		return
	}

	ch0 := resp.Choices[0]
	parts := make([]core.Part, 0, len(ch0.Message.ToolCalls)+1)

	if ch0.Message.Content != "" {
		parts = append(parts, core.TextPart{Text: ch0.Message.Content})
	}

	for _, tc := range ch0.Message.ToolCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: core.FunctionCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		}})
	}

	model.Send(ctx, out, model.Response{
		ID:           resp.ID,
		Partial:      false,
		Content:      core.Content{Role: core.RoleAssistant, Parts: parts},
		FinishReason: string(ch0.FinishReason),
		Usage: &model.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	})
}

// wrapError attaches the HTTP status of SDK API errors.
func wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &model.ProviderError{Provider: "openai", StatusCode: apiErr.StatusCode, Err: err}
	}

	return &model.ProviderError{Provider: "openai", Err: err}
}

// Info returns metadata describing this OpenAI model implementation.
func (m *Model) Info() model.Info {
	return model.Info{
		Name:          m.opts.Model,
		Provider:      "openai",
		SupportsTools: true,
	}
}
