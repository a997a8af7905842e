package sse

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedBody returns its parts one Read at a time.
type chunkedBody struct {
	parts  []string
	err    error
	closed bool
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if len(b.parts) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.parts[0])
	b.parts[0] = b.parts[0][n:]
	if b.parts[0] == "" {
		b.parts = b.parts[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error {
	b.closed = true
	return nil
}

func newQuietStream(body io.ReadCloser) *Stream {
	return NewStream(body, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func collect(t *testing.T, s *Stream) []string {
	t.Helper()
	var out []string
	for s.Next() {
		out = append(out, s.Current().Delta())
	}
	return out
}

func TestStream_Frames(t *testing.T) {
	body := &chunkedBody{parts: []string{frame("Hel"), frame("lo"), "data: [DONE]\n\n"}}
	s := newQuietStream(body)

	assert.Equal(t, []string{"Hel", "lo"}, collect(t, s))
	require.NoError(t, s.Err())
	assert.True(t, s.Done())

	require.NoError(t, s.Close())
	assert.True(t, body.closed)
}

func TestStream_SplitFrame(t *testing.T) {
	f := frame("split")
	body := &chunkedBody{parts: []string{f[:11], f[11:30], f[30:], "data: [DONE]\n\n"}}

	assert.Equal(t, []string{"split"}, collect(t, newQuietStream(body)))
}

func TestStream_StopsReadingAfterDone(t *testing.T) {
	body := &chunkedBody{
		parts: []string{frame("a") + "data: [DONE]\n\n", frame("never")},
		err:   errors.New("must not be read"),
	}
	s := newQuietStream(body)

	assert.Equal(t, []string{"a"}, collect(t, s))
	require.NoError(t, s.Err())
	assert.Len(t, body.parts, 1, "bytes after [DONE] are not read")
}

func TestStream_MultiByteSplitAcrossReads(t *testing.T) {
	payload := frame("Привет, мир ✨") + "data: [DONE]\n\n"
	body := io.NopCloser(iotest.OneByteReader(strings.NewReader(payload)))

	assert.Equal(t, []string{"Привет, мир ✨"}, collect(t, newQuietStream(body)))
}

func TestStream_InvalidUTF8Replaced(t *testing.T) {
	raw := []byte(`data: {"choices":[{"delta":{"content":"a`)
	raw = append(raw, 0xff)
	raw = append(raw, []byte(`b"}}]}`+"\n")...)
	body := io.NopCloser(bytes.NewReader(raw))

	assert.Equal(t, []string{"a�b"}, collect(t, newQuietStream(body)))
}

func TestStream_EOFWithoutDone(t *testing.T) {
	body := &chunkedBody{parts: []string{frame("x"), `data: {"choices":[{"delta":{"content":"tail"}}]}`}}
	s := newQuietStream(body)

	assert.Equal(t, []string{"x", "tail"}, collect(t, s))
	require.NoError(t, s.Err())
	assert.False(t, s.Done())
}

func TestStream_LogsUnterminatedTail(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tail := `data: {"choices":[{"delta":{"content":"tail"}}]}`
	s := NewStream(&chunkedBody{parts: []string{tail}}, log)

	assert.Equal(t, []string{"tail"}, collect(t, s))
	assert.Contains(t, logs.String(), "without a trailing newline")
	assert.Contains(t, logs.String(), "bytes="+strconv.Itoa(len(tail)))
}

func TestStream_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	body := &chunkedBody{parts: []string{frame("partial")}, err: boom}
	s := newQuietStream(body)

	assert.Equal(t, []string{"partial"}, collect(t, s))
	assert.ErrorIs(t, s.Err(), boom)
	assert.False(t, s.Next())
}

func TestStream_LineTooLong(t *testing.T) {
	body := io.NopCloser(strings.NewReader("data: " + strings.Repeat("x", MaxLineSize+10)))
	s := newQuietStream(body)

	assert.Empty(t, collect(t, s))
	assert.ErrorIs(t, s.Err(), ErrLineTooLong)
}
