package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText_PartKind(t *testing.T) {
	p := Text{Text: "hello"}
	assert.Equal(t, "text", p.PartKind())
}

func TestImageURL_PartKind(t *testing.T) {
	p := ImageURL{URL: "data:image/png;base64,AAAA"}
	assert.Equal(t, "image_url", p.PartKind())
}

func TestMarshalPart_Text(t *testing.T) {
	data, err := MarshalPart(Text{Text: "hi"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","text":"hi"}`, string(data))
}

func TestMarshalPart_EmptyText(t *testing.T) {
	data, err := MarshalPart(Text{})

	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","text":""}`, string(data))
}

func TestMarshalPart_ImageURL(t *testing.T) {
	data, err := MarshalPart(ImageURL{URL: "https://example.com/a.png"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"image_url","image_url":{"url":"https://example.com/a.png"}}`, string(data))
}

type customPart struct{}

func (customPart) PartKind() string { return "custom" }

func TestMarshalPart_Unsupported(t *testing.T) {
	_, err := MarshalPart(customPart{})
	assert.ErrorContains(t, err, `unsupported part kind "custom"`)
}

func TestUnmarshalPart(t *testing.T) {
	p, err := UnmarshalPart([]byte(`{"type":"image_url","image_url":{"url":"u"}}`))
	require.NoError(t, err)
	assert.Equal(t, ImageURL{URL: "u"}, p)

	p, err = UnmarshalPart([]byte(`{"type":"text","text":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, Text{Text: "x"}, p)
}

func TestUnmarshalPart_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "unknown type", in: `{"type":"audio"}`, want: "unknown part type"},
		{name: "text missing", in: `{"type":"text"}`, want: "without text"},
		{name: "url missing", in: `{"type":"image_url"}`, want: "without url"},
		{name: "not json", in: `nope`, want: "decode part"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalPart([]byte(tt.in))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
