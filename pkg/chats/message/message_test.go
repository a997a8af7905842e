package message

import (
	"encoding/json"
	"testing"

	"github.com/germanamz/ares/pkg/chats/content"
	"github.com/germanamz/ares/pkg/chats/role"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	msg := New(role.User, content.Text{Text: "hello"}, content.ImageURL{URL: "img.png"})

	assert.Equal(t, role.User, msg.Role)
	assert.Equal(t, KindParts, msg.Content.Kind())
	assert.Len(t, msg.Content.Parts(), 2)
}

func TestNewText(t *testing.T) {
	msg := NewText(role.Assistant, "hi there")

	assert.Equal(t, role.Assistant, msg.Role)
	assert.Equal(t, KindText, msg.Content.Kind())
	assert.Equal(t, "hi there", msg.TextContent())
}

func TestContent_ZeroValue(t *testing.T) {
	var c Content

	assert.Equal(t, KindText, c.Kind())
	assert.Empty(t, c.Text())
}

func TestContent_Text_Parts(t *testing.T) {
	c := PartList(
		content.Text{Text: "hello "},
		content.ImageURL{URL: "img.png"},
		content.Text{Text: "world"},
	)

	assert.Equal(t, "hello world", c.Text())
}

func TestContent_Parts_PlainText(t *testing.T) {
	c := PlainText("abc")

	assert.Equal(t, []content.Part{content.Text{Text: "abc"}}, c.Parts())
}

func TestContent_PartList_Copies(t *testing.T) {
	parts := []content.Part{content.Text{Text: "a"}}
	c := PartList(parts...)
	parts[0] = content.Text{Text: "changed"}

	assert.Equal(t, "a", c.Text())

	got := c.Parts()
	got[0] = content.Text{Text: "mutated"}
	assert.Equal(t, "a", c.Text())
}

func TestContent_Append(t *testing.T) {
	c, err := PlainText("Hel").Append("lo")

	require.NoError(t, err)
	assert.Equal(t, "Hello", c.Text())
}

func TestContent_Append_PartList(t *testing.T) {
	_, err := PartList(content.Text{Text: "a"}).Append("b")
	assert.Error(t, err)
}

func TestMessage_MarshalJSON_Text(t *testing.T) {
	data, err := json.Marshal(NewText(role.User, "hi"))

	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hi"}`, string(data))
}

func TestMessage_MarshalJSON_Parts(t *testing.T) {
	msg := New(role.User, content.Text{Text: "look"}, content.ImageURL{URL: "data:image/png;base64,AA=="})

	data, err := json.Marshal(msg)

	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":[
		{"type":"text","text":"look"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,AA=="}}
	]}`, string(data))
}

func TestMessage_UnmarshalJSON(t *testing.T) {
	var msgs []Message
	err := json.Unmarshal([]byte(`[
		{"role":"user","content":"hi"},
		{"role":"user","content":[{"type":"text","text":"a"},{"type":"image_url","image_url":{"url":"u"}}]}
	]`), &msgs)

	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, KindText, msgs[0].Content.Kind())
	assert.Equal(t, "hi", msgs[0].TextContent())
	assert.Equal(t, KindParts, msgs[1].Content.Kind())
	assert.Equal(t, content.ImageURL{URL: "u"}, msgs[1].Content.Parts()[1])
}

func TestMessage_UnmarshalJSON_Invalid(t *testing.T) {
	var msg Message

	assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":42}`), &msg))
	assert.Error(t, json.Unmarshal([]byte(`{"role":"user","content":[{"type":"video"}]}`), &msg))
}
