package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/artem13815/cvchat/pkg/chat"
	"github.com/artem13815/cvchat/pkg/llm"
)

// Tool is a named local handler the model can call.
type Tool interface {
	Name() string
	Description() string
	Schema() JSONSchema
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// Interactive marks tools whose result is a UI widget the user must answer.
type Interactive interface {
	Interactive() bool
}

// Result lets a handler attach UI metadata to the assistant message.
// Only Payload is sent back to the model.
type Result struct {
	Payload     any
	Widget      *chat.Widget
	Suggestions []string
}

// Outcome is the result of one tool call. Content is always set, including on
// failure, so every call gets its paired tool message.
type Outcome struct {
	Name        string
	Content     string
	Err         error
	Interactive bool
	Widget      *chat.Widget
	Suggestions []string
}

var (
	ErrUnknownTool = errors.New("unknown tool")
	ErrValidation  = errors.New("invalid tool arguments")
)

// Registry keeps the mapping between tool names and implementations.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	order     []string
	validator Validator
}

func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		validator: DefaultValidator{},
	}
}

// Register inserts a tool when its name is not in use.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return tool, nil
}

// Definitions returns the function-calling schemas in registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, llm.FunctionTool(llm.FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema().Map(),
		}))
	}
	return defs
}

// SetValidator swaps the validator used before execution.
func (r *Registry) SetValidator(v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validator = v
}

// Execute decodes and validates rawArguments, then runs the tool. It never
// panics and never returns without content.
func (r *Registry) Execute(ctx context.Context, name, rawArguments string) (out Outcome) {
	out.Name = name
	tool, err := r.Get(name)
	if err != nil {
		return failed(out, err)
	}
	if it, ok := tool.(Interactive); ok {
		out.Interactive = it.Interactive()
	}

	args, err := decodeArguments(rawArguments)
	if err != nil {
		return invalid(out, err)
	}
	r.mu.RLock()
	validator := r.validator
	r.mu.RUnlock()
	if validator != nil {
		if err := validator.Validate(args, tool.Schema()); err != nil {
			return invalid(out, err)
		}
	}

	defer func() {
		if p := recover(); p != nil {
			out = failed(out, fmt.Errorf("tool %s panicked: %v", name, p))
		}
	}()
	res, err := tool.Execute(ctx, args)
	if err != nil {
		return failed(out, err)
	}

	payload := res
	if rr, ok := res.(Result); ok {
		payload = rr.Payload
		out.Widget = rr.Widget
		out.Suggestions = rr.Suggestions
	}
	content, err := json.Marshal(payload)
	if err != nil {
		return failed(out, fmt.Errorf("encode result: %w", err))
	}
	out.Content = string(content)
	return out
}

func decodeArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("arguments are not a JSON object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func invalid(out Outcome, err error) Outcome {
	out.Err = fmt.Errorf("%w: %v", ErrValidation, err)
	out.Content = mustJSON(map[string]string{"status": "error", "message": err.Error()})
	return out
}

func failed(out Outcome, err error) Outcome {
	out.Err = err
	out.Content = mustJSON(map[string]string{"error": err.Error()})
	return out
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"error":"internal"}`
	}
	return string(b)
}

// decodeInto converts validated arguments into a typed struct.
func decodeInto(args map[string]any, dst any) error {
	b, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
