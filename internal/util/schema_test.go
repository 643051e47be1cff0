package util

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type escalationData struct {
	Name         string `json:"name" jsonschema:"description=who escalates"`
	Instructions string `json:"instructions"`
}

type nested struct {
	Tags    []string         `json:"tags"`
	Inner   escalationData   `json:"inner"`
	Note    *string          `json:"note,omitempty"`
	Level   string           `json:"level" jsonschema:"enum=low,enum=high"`
	Skipped int              `json:"-"`
	Extra   map[string]any   `json:"extra,omitempty"`
	Items   []escalationData `json:"items"`
}

func TestCreateSchema_Struct(t *testing.T) {
	s := CreateSchema(escalationData{})

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, false, s["additionalProperties"])
	assert.ElementsMatch(t, []string{"name", "instructions"}, RequiredFields(s))

	props := s["properties"].(map[string]any)
	assert.Equal(t, "who escalates", props["name"].(map[string]any)["description"])
	assert.True(t, IsStrictCompatible(s))
}

func TestCreateSchema_Nested(t *testing.T) {
	s := CreateSchema(&nested{})
	props := s["properties"].(map[string]any)

	tags := props["tags"].(map[string]any)
	assert.Equal(t, "array", tags["type"])
	assert.Equal(t, "string", tags["items"].(map[string]any)["type"])

	inner := props["inner"].(map[string]any)
	assert.Equal(t, "object", inner["type"])
	assert.Contains(t, inner["properties"], "name")

	assert.Equal(t, []any{"low", "high"}, props["level"].(map[string]any)["enum"])
	assert.NotContains(t, props, "Skipped")
	assert.NotContains(t, RequiredFields(s), "note")
	assert.NotContains(t, RequiredFields(s), "extra")

	assert.False(t, IsStrictCompatible(s))
}

func TestCreateSchema_NonStruct(t *testing.T) {
	s := CreateSchema(42)
	assert.Equal(t, "object", s["type"])
	assert.Empty(t, s["properties"])
}

func TestCreateSchema_NoSchemaMetadata(t *testing.T) {
	s := CreateSchema(reflect.TypeOf(escalationData{}))
	assert.NotContains(t, s, "$schema")
	assert.NotContains(t, s, "$id")
	assert.NotContains(t, s, "$defs")
	assert.NotContains(t, s, "$ref")

	empty := CreateSchema(struct{}{})
	assert.Equal(t, "object", empty["type"])
	assert.True(t, IsStrictCompatible(empty))
}

func TestValidateParameters(t *testing.T) {
	schema := CreateSchema(struct {
		A int `json:"a"`
		B int `json:"b"`
	}{})

	require.NoError(t, ValidateParameters(map[string]any{"a": float64(1), "b": float64(2)}, schema))

	err := ValidateParameters(map[string]any{"a": float64(1)}, schema)
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "b", verr.Field)

	err = ValidateParameters(map[string]any{"a": "x", "b": float64(2)}, schema)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "a", verr.Field)

	err = ValidateParameters(map[string]any{"a": 1.5, "b": float64(2)}, schema)
	require.Error(t, err)

	decoded := map[string]any{"required": []any{"x"}}
	require.Error(t, ValidateParameters(map[string]any{}, decoded))
}

func TestParseAndDecodeArgs(t *testing.T) {
	args, err := ParseArguments("  ")
	require.NoError(t, err)
	assert.Empty(t, args)

	_, err = ParseArguments("{not json")
	require.Error(t, err)

	args, err = ParseArguments(`{"name":"Ali","instructions":"translate"}`)
	require.NoError(t, err)

	var out escalationData
	require.NoError(t, DecodeArgs(args, &out))
	assert.Equal(t, escalationData{Name: "Ali", Instructions: "translate"}, out)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSON(`Sure! {"a":1} hope that helps`))
	assert.Equal(t, `[1,2]`, ExtractJSON(`[1,2]`))
	assert.Equal(t, "plain", ExtractJSON("plain"))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("no markers", nil)
	require.NoError(t, err)
	assert.Equal(t, "no markers", out)

	out, err = RenderTemplate("Hello {{.name | upper}}, <b>{{default \"guest\" .role}}</b>", map[string]any{"name": "ali"})
	require.NoError(t, err)
	assert.Equal(t, "Hello ALI, <b>guest</b>", out)

	_, err = RenderTemplate("{{.broken", nil)
	require.ErrorContains(t, err, "parse instructions")

	tpl := "Tools: {{join \", \" .tools}}. Context: {{json .ctx}}"
	for i := 0; i < 2; i++ {
		out, err = RenderTemplate(tpl, map[string]any{
			"tools": []string{"add", "subtract"},
			"ctx":   map[string]any{"age": 19},
		})
		require.NoError(t, err)
		assert.Equal(t, `Tools: add, subtract. Context: {"age":19}`, out)
	}
}
