package tool

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/agentkit/core"
	"github.com/hupe1980/agentkit/internal/util"
)

var argsValidator = validator.New(validator.WithRequiredStructEnabled())

// NewTypedTool builds a FunctionTool whose schema is derived from A and whose
// arguments are decoded into a fresh A before fn runs. Struct arguments are
// also checked against their `validate` tags.
//
//	type addArgs struct {
//	  A int `json:"a" validate:"gte=0"`
//	  B int `json:"b" validate:"gte=0"`
//	}
//
//	add := tool.NewTypedTool("add", "Add two non-negative integers",
//	  func(_ *core.ToolContext, in addArgs) (int, error) { return in.A + in.B, nil })
func NewTypedTool[A, R any](
	name, description string,
	fn func(toolCtx *core.ToolContext, args A) (R, error),
) *FunctionTool {
	argsType := reflect.TypeOf((*A)(nil)).Elem()
	schema := util.CreateSchema(argsType)
	isStruct := argsType.Kind() == reflect.Struct

	return NewFunctionTool(name, description, schema, func(tc *core.ToolContext, args map[string]any) (any, error) {
		var in A
		if err := util.DecodeArgs(args, &in); err != nil {
			return nil, invalidArgs(name, err)
		}

		if isStruct {
			if err := argsValidator.Struct(in); err != nil {
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) {
					return nil, invalidArgs(name, verrs)
				}
				return nil, invalidArgs(name, err)
			}
		}

		return fn(tc, in)
	})
}

func invalidArgs(tool string, err error) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: fmt.Sprintf("invalid arguments: %v", err),
		Code:    CodeValidation,
		Err:     err,
	}
}
