package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/hupe1980/agentkit/internal/util"
	"github.com/hupe1980/agentkit/model"
)

// OutputType describes structured final output: a JSON schema for the model
// and a decoder for the text it returns.
type OutputType struct {
	Name   string
	Schema map[string]any
	Strict bool

	decode func(text string) (any, error)
}

// NewOutputType derives the schema from T. Decoded final output is a T value.
//
//	type Message struct {
//		Response string `json:"response"`
//	}
//
//	agent.New("Assistant", agent.WithOutputType(agent.NewOutputType[Message]()))
func NewOutputType[T any]() *OutputType {
	t := reflect.TypeOf((*T)(nil)).Elem()
	schema := util.CreateSchema(t)

	name := t.Name()
	if name == "" {
		name = "final_output"
	}

	return &OutputType{
		Name:   name,
		Schema: schema,
		Strict: util.IsStrictCompatible(schema),
		decode: func(text string) (any, error) {
			var v T
			if err := json.Unmarshal([]byte(text), &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// NewOutputTypeFromSchema uses an explicit schema. Decoded final output is
// the generic JSON value (usually map[string]any).
func NewOutputTypeFromSchema(name string, schema map[string]any) *OutputType {
	return &OutputType{
		Name:   name,
		Schema: schema,
		Strict: util.IsStrictCompatible(schema),
		decode: func(text string) (any, error) {
			var v any
			if err := json.Unmarshal([]byte(text), &v); err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// Decode parses model text into the output value. Surrounding code fences
// and prose are tolerated.
func (o *OutputType) Decode(text string) (any, error) {
	text = util.ExtractJSON(text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty output for %s", o.Name)
	}

	v, err := o.decode(text)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", o.Name, err)
	}

	return v, nil
}

// OutputSchema returns the model request form.
func (o *OutputType) OutputSchema() *model.OutputSchema {
	if o == nil {
		return nil
	}

	return &model.OutputSchema{Name: o.Name, Schema: o.Schema, Strict: o.Strict}
}
