package chat

import (
	"regexp"
	"strings"
)

type ReplyKind string

const (
	ReplyText        ReplyKind = "text"
	ReplySuggestions ReplyKind = "suggestions"
	ReplyWidget      ReplyKind = "widget"
	ReplyEmpty       ReplyKind = "empty"
)

// Reply is the classified form of an assistant message, so consumers never
// have to sniff tags out of raw model text.
type Reply struct {
	Kind        ReplyKind `json:"kind"`
	Text        string    `json:"text,omitempty"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Widget      *Widget   `json:"widget,omitempty"`
}

var (
	reArtifact   = regexp.MustCompile(`(?s)<\|im_start\|>.*$`)
	reSuggestion = regexp.MustCompile(`(?s)<suggestion>(.*?)</suggestion>`)
)

// Sanitize strips chat-template artefacts some models leak into their output.
func Sanitize(text string) string {
	return strings.TrimSpace(reArtifact.ReplaceAllString(text, ""))
}

// ExtractSuggestions removes <suggestion>…</suggestion> tags from text and
// returns the cleaned text together with the tag contents.
func ExtractSuggestions(text string) (string, []string) {
	var suggestions []string
	for _, m := range reSuggestion.FindAllStringSubmatch(text, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			suggestions = append(suggestions, s)
		}
	}
	clean := reSuggestion.ReplaceAllString(text, "")
	return strings.TrimSpace(clean), suggestions
}

// Normalize sanitizes an assistant message and moves inline suggestions into
// its Suggestions field. Non-text content is left untouched.
func Normalize(m Message) Message {
	if m.Role != RoleAssistant || m.Content.IsNull() || m.Content.IsMultipart() {
		return m
	}
	clean, suggestions := ExtractSuggestions(Sanitize(m.Content.String()))
	if clean == "" && len(m.ToolCalls) > 0 {
		m.Content = Content{}
	} else {
		m.Content = Text(clean)
	}
	if len(suggestions) > 0 {
		m.Suggestions = append(m.Suggestions, suggestions...)
	}
	return m
}

// Classify maps a stored assistant message to its reply kind. A widget wins
// over suggestions, suggestions over plain text.
func Classify(m Message) Reply {
	r := Reply{Text: m.Content.String()}
	switch {
	case m.Widget != nil:
		r.Kind = ReplyWidget
		w := *m.Widget
		r.Widget = &w
		r.Suggestions = append([]string(nil), m.Suggestions...)
	case len(m.Suggestions) > 0:
		r.Kind = ReplySuggestions
		r.Suggestions = append([]string(nil), m.Suggestions...)
	case r.Text != "":
		r.Kind = ReplyText
	default:
		r.Kind = ReplyEmpty
	}
	return r
}
