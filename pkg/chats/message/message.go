// Package message defines the Message type used in a conversation.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/ares/pkg/chats/content"
	"github.com/germanamz/ares/pkg/chats/role"
)

// Kind tags which variant a Content holds.
type Kind int

const (
	KindText Kind = iota
	KindParts
)

// Content is either plain text or an ordered list of parts. The zero value
// is empty plain text.
type Content struct {
	kind  Kind
	text  string
	parts []content.Part
}

// PlainText returns text content.
func PlainText(s string) Content {
	return Content{kind: KindText, text: s}
}

// PartList returns multi-part content. The slice is copied.
func PartList(parts ...content.Part) Content {
	cp := make([]content.Part, len(parts))
	copy(cp, parts)
	return Content{kind: KindParts, parts: cp}
}

// Kind reports which variant c holds.
func (c Content) Kind() Kind { return c.kind }

// Text returns the textual form of c. For part lists it concatenates the
// text parts and skips everything else.
func (c Content) Text() string {
	if c.kind == KindText {
		return c.text
	}

	var b strings.Builder
	for _, p := range c.parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// Parts returns c as a list of parts. Plain text yields a single Text part.
func (c Content) Parts() []content.Part {
	if c.kind == KindText {
		return []content.Part{content.Text{Text: c.text}}
	}

	cp := make([]content.Part, len(c.parts))
	copy(cp, c.parts)
	return cp
}

// Append returns plain text content with delta appended. It fails for part
// lists, which are never extended during streaming.
func (c Content) Append(delta string) (Content, error) {
	if c.kind != KindText {
		return c, fmt.Errorf("message: cannot append text to multi-part content")
	}
	return PlainText(c.text + delta), nil
}

// MarshalJSON encodes plain text as a JSON string and part lists as an array.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.kind == KindText {
		return json.Marshal(c.text)
	}

	raw := make([]json.RawMessage, 0, len(c.parts))
	for _, p := range c.parts {
		data, err := content.MarshalPart(p)
		if err != nil {
			return nil, err
		}
		raw = append(raw, data)
	}
	return json.Marshal(raw)
}

// UnmarshalJSON accepts either a JSON string or an array of parts.
func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return fmt.Errorf("message: decode content parts: %w", err)
		}

		parts := make([]content.Part, 0, len(raw))
		for _, r := range raw {
			p, err := content.UnmarshalPart(r)
			if err != nil {
				return err
			}
			parts = append(parts, p)
		}
		*c = Content{kind: KindParts, parts: parts}
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return fmt.Errorf("message: content must be a string or an array of parts: %w", err)
	}
	*c = PlainText(s)
	return nil
}

// Message represents a single message in a conversation.
// It is a value type that copies cheaply.
type Message struct {
	Role    role.Role `json:"role"`
	Content Content   `json:"content"`
}

// New creates a message with multi-part content.
func New(r role.Role, parts ...content.Part) Message {
	return Message{Role: r, Content: PartList(parts...)}
}

// NewText creates a message with plain text content.
func NewText(r role.Role, text string) Message {
	return Message{Role: r, Content: PlainText(text)}
}

// TextContent returns the textual form of the message content.
func (m Message) TextContent() string {
	return m.Content.Text()
}
