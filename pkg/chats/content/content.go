// Package content defines the content parts of a multi-part message.
package content

import (
	"encoding/json"
	"fmt"
)

// Part is a piece of content within a message.
type Part interface {
	PartKind() string
}

// Text is a plain text content part.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// ImageURL references an image (or any attached file) by URL. Attachments
// are embedded as base64 data URLs.
type ImageURL struct {
	URL string
}

func (i ImageURL) PartKind() string { return "image_url" }

type wirePart struct {
	Type     string   `json:"type"`
	Text     *string  `json:"text,omitempty"`
	ImageURL *wireURL `json:"image_url,omitempty"`
}

type wireURL struct {
	URL string `json:"url"`
}

// MarshalPart encodes a part in the chat-completions wire shape.
func MarshalPart(p Part) ([]byte, error) {
	switch v := p.(type) {
	case Text:
		return json.Marshal(wirePart{Type: v.PartKind(), Text: &v.Text})
	case ImageURL:
		return json.Marshal(wirePart{Type: v.PartKind(), ImageURL: &wireURL{URL: v.URL}})
	default:
		return nil, fmt.Errorf("content: unsupported part kind %q", p.PartKind())
	}
}

// UnmarshalPart decodes a single wire part.
func UnmarshalPart(data []byte) (Part, error) {
	var w wirePart
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("content: decode part: %w", err)
	}

	switch w.Type {
	case "text":
		if w.Text == nil {
			return nil, fmt.Errorf("content: text part without text")
		}
		return Text{Text: *w.Text}, nil
	case "image_url":
		if w.ImageURL == nil || w.ImageURL.URL == "" {
			return nil, fmt.Errorf("content: image_url part without url")
		}
		return ImageURL{URL: w.ImageURL.URL}, nil
	default:
		return nil, fmt.Errorf("content: unknown part type %q", w.Type)
	}
}
