package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

var instructionFuncs = template.FuncMap{
	"default": func(fallback, v any) any {
		if v == nil || v == "" {
			return fallback
		}
		return v
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"join": func(sep string, items any) string {
		switch v := items.(type) {
		case []string:
			return strings.Join(v, sep)
		case []any:
			parts := make([]string, len(v))
			for i, item := range v {
				parts[i] = fmt.Sprint(item)
			}
			return strings.Join(parts, sep)
		default:
			return fmt.Sprint(items)
		}
	},
	"json": func(v any) (string, error) {
		b, err := json.Marshal(v)
		return string(b), err
	},
}

var templateCache sync.Map // text -> *template.Template

// RenderTemplate renders text as a text/template against data. Text without
// template markers is returned untouched. Parsed templates are cached by
// their source.
func RenderTemplate(text string, data any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := parseTemplate(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render instructions: %w", err)
	}

	return buf.String(), nil
}

func parseTemplate(text string) (*template.Template, error) {
	if cached, ok := templateCache.Load(text); ok {
		return cached.(*template.Template), nil
	}

	tmpl, err := template.New("instructions").Option("missingkey=zero").Funcs(instructionFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse instructions: %w", err)
	}

	templateCache.Store(text, tmpl)

	return tmpl, nil
}
