// Package chat provides a mutable conversation container.
package chat

import (
	"github.com/germanamz/ares/pkg/chats/message"
)

// Chat is an ordered conversation. Messages are append-only except for the
// last one, which may be replaced while a reply is streaming in. The zero
// value is ready to use.
// Chat is not safe for concurrent use; callers must synchronize externally.
type Chat struct {
	messages []message.Message
}

// New creates a Chat pre-populated with the given messages.
func New(msgs ...message.Message) *Chat {
	return &Chat{messages: msgs}
}

// Append adds one or more messages to the conversation.
func (c *Chat) Append(msgs ...message.Message) {
	c.messages = append(c.messages, msgs...)
}

// Len returns the number of messages in the conversation.
func (c *Chat) Len() int {
	return len(c.messages)
}

// Last returns the most recent message and true, or a zero Message and false
// if the conversation is empty.
func (c *Chat) Last() (message.Message, bool) {
	if len(c.messages) == 0 {
		return message.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// ReplaceLast swaps the most recent message for m. It reports false when the
// conversation is empty.
func (c *Chat) ReplaceLast(m message.Message) bool {
	if len(c.messages) == 0 {
		return false
	}
	c.messages[len(c.messages)-1] = m
	return true
}

// Truncate drops every message at index n and beyond. It is a no-op when n
// is at or past the end. Negative n empties the conversation.
func (c *Chat) Truncate(n int) {
	n = max(n, 0)
	if n >= len(c.messages) {
		return
	}
	clear(c.messages[n:])
	c.messages = c.messages[:n]
}

// Reset removes all messages.
func (c *Chat) Reset() {
	c.Truncate(0)
}

// Messages returns a copy of all messages in the conversation.
func (c *Chat) Messages() []message.Message {
	cp := make([]message.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}
