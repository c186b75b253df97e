package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/artem13815/cvchat/pkg/cv"
	"github.com/artem13815/cvchat/pkg/llm"
)

const (
	notSet  = "(Not Set)"
	trailer = "--- START OF CONVERSATION ---"
)

// ToolSource provides the callable tool schemas, in registration order.
type ToolSource interface {
	Definitions() []llm.ToolDefinition
}

type Prompt struct {
	System string
	Tools  []llm.ToolDefinition
}

// Builder renders the system prompt from the static configuration and a CV
// snapshot. It keeps no state between calls: the same snapshot and locale
// always render to the same bytes.
type Builder struct {
	cfg    Config
	tools  ToolSource
	locale string
}

func NewBuilder(cfg Config, tools ToolSource, locale string) *Builder {
	return &Builder{cfg: cfg, tools: tools, locale: locale}
}

func (b *Builder) Build(snapshot cv.Data) (Prompt, error) {
	if err := b.cfg.Validate(); err != nil {
		return Prompt{}, err
	}
	var defs []llm.ToolDefinition
	if b.tools != nil {
		defs = b.tools.Definitions()
	}
	if len(defs) == 0 {
		return Prompt{}, fmt.Errorf("%w: no tools registered", ErrInvalidConfig)
	}

	var sb strings.Builder
	c := b.cfg
	fmt.Fprintf(&sb, "# Role: %s\n\n", c.Role)
	fmt.Fprintf(&sb, "## Goal\n%s\n\n", strings.TrimSpace(c.Goal))
	fmt.Fprintf(&sb, "## Persona\nTone: %s\nStyle: %s\nEmojis: %s\n\n",
		strings.Join(c.Persona.Tone, ", "), c.Persona.Style, yesNo(c.Persona.Emojis))
	fmt.Fprintf(&sb, "## Language\n%s\n\n", c.ResolveLanguage(b.locale))
	fmt.Fprintf(&sb, "%s\n%s\n\n", c.Context, FormatCV(snapshot))

	fmt.Fprintf(&sb, "## Instructions\n%s\n\n", strings.TrimSpace(c.Instructions.ContextAwareness))
	sb.WriteString("Dialogue Guidelines:\n")
	writeList(&sb, c.Instructions.DialogueGuidelines)
	sb.WriteString("\n")

	sb.WriteString("Tool Usage:\n")
	for _, d := range defs {
		if usage, ok := c.Instructions.ToolUsage[d.Function.Name]; ok {
			fmt.Fprintf(&sb, "- %s: %s\n", d.Function.Name, usage)
		}
	}
	sb.WriteString("\n")

	sh := c.Instructions.SuggestionHandling
	fmt.Fprintf(&sb, "Suggestion Handling:\nFormat: %s\n", sh.Format)
	fmt.Fprintf(&sb, "Examples:\n%s\n", strings.Join(sh.Examples, "\n"))
	fmt.Fprintf(&sb, "When to Suggest:\n%s\n\n", strings.Join(sh.WhenToSuggest, "\n"))

	sb.WriteString("## Constraints\n")
	keys := make([]string, 0, len(c.Constraints))
	for k := range c.Constraints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "- %s: %s\n", k, c.Constraints[k])
	}
	sb.WriteString("\n")
	sb.WriteString(trailer)

	return Prompt{System: sb.String(), Tools: defs}, nil
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func writeList(sb *strings.Builder, items []string) {
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
}
