package util

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema creates a JSON schema for a struct given as a value or a
// reflect.Type. Nested types are expanded inline and objects are closed with
// additionalProperties false. Fields without omitempty are required.
// Descriptions and enums come from `jsonschema` struct tags. Recursive types
// are not supported. Non-struct input yields an empty object schema.
func CreateSchema(v any) map[string]any {
	var t reflect.Type
	if rt, ok := v.(reflect.Type); ok {
		t = rt
	} else {
		t = reflect.TypeOf(v)
	}

	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return emptyObjectSchema()
	}

	r := &jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
	}

	b, err := json.Marshal(r.ReflectFromType(t))
	if err != nil {
		return emptyObjectSchema()
	}

	var schema map[string]any
	if err := json.Unmarshal(b, &schema); err != nil {
		return emptyObjectSchema()
	}

	delete(schema, "$schema")
	delete(schema, "$id")

	return schema
}

func emptyObjectSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// RequiredFields returns the "required" entry of a schema regardless of
// whether it was built in Go ([]string) or decoded from JSON ([]any).
func RequiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// IsStrictCompatible reports whether every object in schema lists all of its
// properties as required and forbids additional properties.
func IsStrictCompatible(schema map[string]any) bool {
	if schema == nil {
		return false
	}

	if t, _ := schema["type"].(string); t == "object" {
		if ap, ok := schema["additionalProperties"].(bool); !ok || ap {
			return false
		}

		props, _ := schema["properties"].(map[string]any)
		required := RequiredFields(schema)
		if len(required) != len(props) {
			return false
		}

		for _, p := range props {
			ps, ok := p.(map[string]any)
			if !ok || !IsStrictCompatible(ps) {
				return false
			}
		}

		return true
	}

	if items, ok := schema["items"].(map[string]any); ok {
		return IsStrictCompatible(items)
	}

	return true
}

// ValidateParameters validates parameters against a JSON schema.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	for _, fieldName := range RequiredFields(schema) {
		if _, exists := params[fieldName]; !exists {
			return &ValidationError{
				Field:   fieldName,
				Message: "required field is missing",
			}
		}
	}

	// Validate field types
	properties, _ := schema["properties"].(map[string]any)
	for fieldName, value := range params {
		propSchema, exists := properties[fieldName]
		if !exists {
			continue // Allow extra fields
		}

		propMap, ok := propSchema.(map[string]any)
		if !ok {
			continue
		}

		expectedType, _ := propMap["type"].(string)
		if !isValidType(value, expectedType) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("expected type %s, got %T", expectedType, value),
			}
		}
	}

	return nil
}

// ParseArguments decodes a JSON argument string. Blank input yields an empty map.
func ParseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}

	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}

	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}

// DecodeArgs converts a decoded argument map into out (a pointer) via JSON.
func DecodeArgs(args map[string]any, out any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, out)
}

// ExtractJSON strips markdown code fences and surrounding prose from model
// output, returning the outermost JSON object or array if one is found.
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}

	if json.Valid([]byte(s)) {
		return s
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return s
	}

	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}

	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return s
	}

	return s[start : end+1]
}

// isValidType checks if a value is valid according to the expected JSON schema type.
func isValidType(value any, expectedType string) bool {
	if value == nil {
		return true // nil is valid for any type
	}

	switch expectedType {
	case "string":
		_, ok := value.(string)
		return ok
	case "integer":
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true
		case float64: // JSON unmarshaling often produces float64 for numbers
			return v == float64(int64(v)) // Check if it's actually an integer
		}
		return false
	case "number":
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
			float32, float64:
			return true
		}
		return false
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "array":
		if _, ok := value.([]any); ok {
			return true
		}
		rv := reflect.ValueOf(value)
		return rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array
	case "object":
		if _, ok := value.(map[string]any); ok {
			return true
		}
		rv := reflect.ValueOf(value)
		return rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct
	default:
		return true // Unknown types are assumed valid
	}
}
