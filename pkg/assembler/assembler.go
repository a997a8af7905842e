// Package assembler folds streamed text deltas into the assistant message at
// the end of a conversation.
package assembler

import (
	"errors"

	"github.com/germanamz/ares/pkg/chats/chat"
	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/chats/role"
)

// ErrNotPlainText is returned when the trailing assistant message holds
// multi-part content, which cannot be extended by a text delta.
var ErrNotPlainText = errors.New("assembler: assistant message is not plain text")

// Apply merges delta into c. When the last message is from the assistant its
// content is replaced with the concatenation; otherwise a new assistant
// message holding delta is appended. Empty deltas leave c untouched.
func Apply(c *chat.Chat, delta string) error {
	if delta == "" {
		return nil
	}

	last, ok := c.Last()
	if !ok || last.Role != role.Assistant {
		c.Append(message.NewText(role.Assistant, delta))
		return nil
	}

	if last.Content.Kind() != message.KindText {
		return ErrNotPlainText
	}

	next, err := last.Content.Append(delta)
	if err != nil {
		return ErrNotPlainText
	}
	c.ReplaceLast(message.Message{Role: role.Assistant, Content: next})

	return nil
}

// Assembler applies deltas to a chat and notifies a callback with the
// updated assistant message after every change.
type Assembler struct {
	Chat *chat.Chat
	// OnUpdate, when set, receives the assistant message after each applied
	// delta.
	OnUpdate func(message.Message)

	applied int
}

// New creates an Assembler writing into c.
func New(c *chat.Chat, onUpdate func(message.Message)) *Assembler {
	return &Assembler{Chat: c, OnUpdate: onUpdate}
}

// Apply merges delta into the chat. See the package-level Apply.
func (a *Assembler) Apply(delta string) error {
	if delta == "" {
		return nil
	}
	if err := Apply(a.Chat, delta); err != nil {
		return err
	}

	a.applied++
	if a.OnUpdate != nil {
		last, _ := a.Chat.Last()
		a.OnUpdate(last)
	}

	return nil
}

// Applied returns the number of non-empty deltas merged so far.
func (a *Assembler) Applied() int { return a.applied }
