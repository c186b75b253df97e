package tools

import (
	"encoding/json"
	"fmt"
	"math"
)

// Validator validates tool arguments before execution.
type Validator interface {
	Validate(params map[string]any, schema JSONSchema) error
}

// DefaultValidator covers required fields, primitive types, array item
// types and string enums.
type DefaultValidator struct{}

func (DefaultValidator) Validate(params map[string]any, schema JSONSchema) error {
	if params == nil {
		params = map[string]any{}
	}
	for _, field := range schema.Required {
		if _, exists := params[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}
	for key, value := range params {
		def, ok := schema.Properties[key].(map[string]any)
		if !ok {
			continue
		}
		if err := validateValue(value, def); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

func validateValue(value any, def map[string]any) error {
	expected, _ := def["type"].(string)
	if expected == "" {
		return nil
	}
	if err := validateType(value, expected); err != nil {
		return err
	}
	switch expected {
	case "array":
		items, ok := def["items"].(map[string]any)
		if !ok {
			return nil
		}
		for i, it := range value.([]any) {
			if err := validateValue(it, items); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
		}
	case "string":
		enum, ok := def["enum"].([]string)
		if !ok || len(enum) == 0 {
			return nil
		}
		for _, e := range enum {
			if e == value.(string) {
				return nil
			}
		}
		return fmt.Errorf("value %q is not one of %v", value, enum)
	}
	return nil
}

func validateType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	case "null":
		if value == nil {
			return nil
		}
	default:
		return fmt.Errorf("unsupported schema type %q", expected)
	}
	return fmt.Errorf("expected %s but got %s", expected, jsonKind(value))
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64, int, int64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int64:
		return true
	case float64:
		return math.Trunc(v) == v
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
