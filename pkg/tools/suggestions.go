package tools

import (
	"context"
	"fmt"
	"strings"
)

// AddSuggestions attaches clickable follow-up answers to the assistant message.
type AddSuggestions struct{}

func NewAddSuggestions() *AddSuggestions { return &AddSuggestions{} }

func (*AddSuggestions) Name() string { return "add_suggestions" }

func (*AddSuggestions) Description() string {
	return "Offer the user short follow-up answers they can click instead of typing."
}

func (*AddSuggestions) Schema() JSONSchema {
	return JSONSchema{
		Type:       "object",
		Properties: map[string]any{"suggestions": stringArrayProp("Two to four short answers")},
		Required:   []string{"suggestions"},
	}
}

func (*AddSuggestions) Execute(_ context.Context, args map[string]any) (any, error) {
	raw, _ := args["suggestions"].([]any)
	var suggestions []string
	for _, v := range raw {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			suggestions = append(suggestions, strings.TrimSpace(s))
		}
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("no suggestions provided")
	}
	return Result{
		Payload: map[string]any{
			"status":  "success",
			"message": "Suggestions shown to the user.",
		},
		Suggestions: suggestions,
	}, nil
}
