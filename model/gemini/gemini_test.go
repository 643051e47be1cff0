package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/model"
)

func TestBuildContents(t *testing.T) {
	contents := buildContents([]core.Content{
		{Role: core.RoleSystem, Parts: []core.Part{core.TextPart{Text: "ignored here"}}},
		core.NewUserContent("1+2?"),
		core.NewFunctionCallContent(core.FunctionCall{ID: "c1", Name: "add", Arguments: `{"a":1,"b":2}`}),
		core.NewFunctionResponseContent(core.FunctionResponse{ID: "c1", Name: "add", Response: 3}),
		core.NewFunctionResponseContent(core.FunctionResponse{ID: "c2", Name: "sub", Error: "boom"}),
	})

	require.Len(t, contents, 4)
	assert.Equal(t, roleUser, contents[1].Role)

	call := contents[2]
	assert.Equal(t, roleModel, call.Role)
	require.NotNil(t, call.Parts[0].FunctionCall)
	assert.Equal(t, "add", call.Parts[0].FunctionCall.Name)
	assert.EqualValues(t, 1, call.Parts[0].FunctionCall.Args["a"])

	responses := contents[3]
	assert.Equal(t, roleUser, responses.Role)
	require.Len(t, responses.Parts, 2)
	assert.Equal(t, 3, responses.Parts[0].FunctionResponse.Response["output"])
	assert.Equal(t, "boom", responses.Parts[1].FunctionResponse.Response["error"])
}

func TestBuildConfig(t *testing.T) {
	cfg := buildConfig(model.Request{
		Instructions: "Be brief.",
		Tools: []model.ToolDefinition{model.NewFunctionTool("write_poem", "Write a poem", map[string]any{
			"type":       "object",
			"properties": map[string]any{"topic": map[string]any{"type": "string"}},
			"required":   []string{"topic"},
		})},
		Settings: model.Settings{
			Temperature: model.Float(0.9),
			MaxTokens:   model.Int(500),
			ToolChoice:  "write_poem",
		},
		OutputSchema: &model.OutputSchema{Name: "Message", Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"response": map[string]any{"type": "string"}},
		}},
	})

	assert.Equal(t, "Be brief.", cfg.SystemInstruction.Parts[0].Text)
	assert.InDelta(t, 0.9, *cfg.Temperature, 1e-6)
	assert.EqualValues(t, 500, cfg.MaxOutputTokens)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.Equal(t, genai.TypeObject, cfg.ResponseSchema.Type)

	require.Len(t, cfg.Tools, 1)
	decl := cfg.Tools[0].FunctionDeclarations[0]
	assert.Equal(t, "write_poem", decl.Name)
	assert.Equal(t, []string{"topic"}, decl.Parameters.Required)
	assert.Equal(t, genai.TypeString, decl.Parameters.Properties["topic"].Type)

	fc := cfg.ToolConfig.FunctionCallingConfig
	assert.Equal(t, genai.FunctionCallingConfigModeAny, fc.Mode)
	assert.Equal(t, []string{"write_poem"}, fc.AllowedFunctionNames)
}

func TestToolConfig_Modes(t *testing.T) {
	assert.Equal(t, genai.FunctionCallingConfigModeNone, toolConfig(model.ToolChoiceNone).FunctionCallingConfig.Mode)
	assert.Equal(t, genai.FunctionCallingConfigModeAuto, toolConfig(model.ToolChoiceAuto).FunctionCallingConfig.Mode)
	assert.Empty(t, toolConfig(model.ToolChoiceRequired).FunctionCallingConfig.AllowedFunctionNames)
}

func TestToResponse(t *testing.T) {
	resp, err := toResponse(&genai.GenerateContentResponse{
		ResponseID: "r1",
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Role: roleModel, Parts: []*genai.Part{
				{Text: "Adding. "},
				{FunctionCall: &genai.FunctionCall{Name: "add", Args: map[string]any{"a": 1}}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     5,
			CandidatesTokenCount: 2,
			TotalTokenCount:      7,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Adding. ", resp.Content.Text())
	calls := resp.Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ID)
	assert.JSONEq(t, `{"a":1}`, calls[0].Arguments)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 7, resp.Usage.TotalTokens)

	_, err = toResponse(&genai.GenerateContentResponse{})
	require.Error(t, err)
}
