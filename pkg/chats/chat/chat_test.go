package chat

import (
	"testing"

	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/chats/role"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	m1 := message.NewText(role.User, "hello")
	m2 := message.NewText(role.Assistant, "hi")
	c := New(m1, m2)

	assert.Equal(t, 2, c.Len())
}

func TestChat_ZeroValue(t *testing.T) {
	var c Chat

	assert.Equal(t, 0, c.Len())

	_, ok := c.Last()
	assert.False(t, ok)
	assert.Empty(t, c.Messages())
	assert.False(t, c.ReplaceLast(message.NewText(role.User, "x")))
}

func TestChat_Append(t *testing.T) {
	c := New()
	c.Append(message.NewText(role.User, "one"))
	c.Append(
		message.NewText(role.Assistant, "two"),
		message.NewText(role.User, "three"),
	)

	assert.Equal(t, 3, c.Len())
}

func TestChat_Last(t *testing.T) {
	c := New(
		message.NewText(role.User, "first"),
		message.NewText(role.Assistant, "second"),
	)

	msg, ok := c.Last()
	assert.True(t, ok)
	assert.Equal(t, "second", msg.TextContent())
}

func TestChat_ReplaceLast(t *testing.T) {
	c := New(
		message.NewText(role.User, "q"),
		message.NewText(role.Assistant, "Hel"),
	)

	ok := c.ReplaceLast(message.NewText(role.Assistant, "Hello"))

	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "q", c.Messages()[0].TextContent())
	assert.Equal(t, "Hello", c.Messages()[1].TextContent())
}

func TestChat_Truncate(t *testing.T) {
	tests := []struct {
		name string
		n    int
		want int
	}{
		{name: "middle", n: 1, want: 1},
		{name: "end", n: 3, want: 3},
		{name: "past end", n: 10, want: 3},
		{name: "zero", n: 0, want: 0},
		{name: "negative", n: -1, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(
				message.NewText(role.User, "a"),
				message.NewText(role.Assistant, "b"),
				message.NewText(role.User, "c"),
			)
			c.Truncate(tt.n)
			assert.Equal(t, tt.want, c.Len())
		})
	}
}

func TestChat_Reset(t *testing.T) {
	c := New(message.NewText(role.User, "a"))
	c.Reset()

	assert.Equal(t, 0, c.Len())
}

func TestChat_Messages_ReturnsCopy(t *testing.T) {
	c := New(message.NewText(role.User, "hello"))

	msgs := c.Messages()
	msgs[0] = message.NewText(role.Assistant, "modified")

	assert.Equal(t, "hello", c.Messages()[0].TextContent())
}
