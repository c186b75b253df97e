package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image_url"
)

type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// ContentPart is one element of a multimodal user turn.
type ContentPart struct {
	Type     PartType  `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Content holds message content: plain text, a list of parts, or null.
// The zero value is null.
type Content struct {
	text  string
	parts []ContentPart
	set   bool
}

func Text(s string) Content {
	return Content{text: s, set: true}
}

func Parts(parts ...ContentPart) Content {
	ps := make([]ContentPart, len(parts))
	copy(ps, parts)
	return Content{parts: ps, set: true}
}

func (c Content) IsNull() bool { return !c.set }

// IsMultipart reports whether the content was built from parts.
func (c Content) IsMultipart() bool { return c.set && c.parts != nil }

func (c Content) Parts() []ContentPart {
	if c.parts == nil {
		return nil
	}
	ps := make([]ContentPart, len(c.parts))
	copy(ps, c.parts)
	return ps
}

// String flattens the content to text; image parts are dropped.
func (c Content) String() string {
	if !c.set {
		return ""
	}
	if c.parts == nil {
		return c.text
	}
	var texts []string
	for _, p := range c.parts {
		if p.Type == PartText && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

func (c Content) MarshalJSON() ([]byte, error) {
	switch {
	case !c.set:
		return []byte("null"), nil
	case c.parts != nil:
		return json.Marshal(c.parts)
	default:
		return json.Marshal(c.text)
	}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*c = Content{}
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
		return nil
	case data[0] == '[':
		var parts []ContentPart
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		if parts == nil {
			parts = []ContentPart{}
		}
		*c = Content{parts: parts, set: true}
		return nil
	}
	return errors.New("content must be a string, an array of parts or null")
}
