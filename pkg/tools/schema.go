package tools

// JSONSchema captures the subset of JSON Schema used for tool validation.
type JSONSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required,omitempty"`
}

// Map renders the schema in the shape the function-calling API expects.
func (s JSONSchema) Map() map[string]any {
	m := map[string]any{
		"type":       s.Type,
		"properties": s.Properties,
	}
	if len(s.Required) > 0 {
		m["required"] = append([]string(nil), s.Required...)
	}
	return m
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func stringArrayProp(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"description": description,
		"items":       map[string]any{"type": "string"},
	}
}

func objectProp(description string) map[string]any {
	return map[string]any{"type": "object", "description": description}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}
