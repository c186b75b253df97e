package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/artem13815/cvchat/pkg/chat"
)

// ToolChoiceAuto lets the model decide whether to call a tool.
const ToolChoiceAuto = "auto"

// FunctionDefinition describes a callable function in the OpenAI
// function-calling format. Parameters is a JSON schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionTool wraps a function definition into a tool definition.
func FunctionTool(fn FunctionDefinition) ToolDefinition {
	return ToolDefinition{Type: "function", Function: fn}
}

type CompletionRequest struct {
	Model      string
	Messages   []chat.Message
	Tools      []ToolDefinition
	ToolChoice string
}

// Completion is one assistant turn returned by the model. A "stop" with no
// content and no tool calls is a valid empty turn.
type Completion struct {
	ID           string
	Message      chat.Message
	FinishReason string
}

// Completer is the chat-completion port used by the turn orchestrator.
// It hides concrete providers to preserve dependency direction.
type Completer interface {
	CreateChatCompletion(ctx context.Context, req CompletionRequest) (Completion, error)
}

type Pricing struct {
	Prompt            string `json:"prompt"`
	Completion        string `json:"completion"`
	Image             string `json:"image"`
	Request           string `json:"request"`
	InputCacheRead    string `json:"input_cache_read"`
	InputCacheWrite   string `json:"input_cache_write"`
	WebSearch         string `json:"web_search"`
	InternalReasoning string `json:"internal_reasoning"`
}

// Free reports whether every price of the vector is exactly "0".
func (p Pricing) Free() bool {
	for _, v := range []string{
		p.Prompt, p.Completion, p.Image, p.Request,
		p.InputCacheRead, p.InputCacheWrite, p.WebSearch, p.InternalReasoning,
	} {
		if v != "0" {
			return false
		}
	}
	return true
}

type ModelInfo struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	ContextLength int     `json:"context_length,omitempty"`
	Pricing       Pricing `json:"pricing"`
}

// ModelLister lists models that cost nothing to call.
type ModelLister interface {
	ListFreeModels(ctx context.Context) ([]ModelInfo, error)
}

// ErrCompletionFailed is matched by every transport, status and shape error.
var ErrCompletionFailed = errors.New("completion failed")

// CompletionError carries the upstream reason of a failed completion.
type CompletionError struct {
	Status   int
	Upstream string
	Err      error
}

func (e *CompletionError) Error() string {
	msg := "completion failed"
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: http %d", msg, e.Status)
	}
	if e.Upstream != "" {
		msg += ": " + e.Upstream
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CompletionError) Unwrap() error { return e.Err }

func (e *CompletionError) Is(target error) bool { return target == ErrCompletionFailed }

// UpstreamMessage extracts a human readable message from an OpenAI-style
// error body ({"error":{"message":...}}). The raw body is returned otherwise.
func UpstreamMessage(body []byte) string {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(env.Error, &obj) == nil && obj.Message != "" {
			return obj.Message
		}
		var s string
		if json.Unmarshal(env.Error, &s) == nil && s != "" {
			return s
		}
	}
	return string(body)
}
