package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/chats/role"
	"github.com/germanamz/ares/pkg/engine"
	"github.com/germanamz/ares/pkg/sse"
	"github.com/germanamz/ares/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(s string) string {
	return `data: {"choices":[{"delta":{"content":"` + s + `"}}]}` + "\n\n"
}

const done = "data: [DONE]\n\n"

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// stubStreamer serves a body from open, or fails with err.
type stubStreamer struct {
	open func() io.ReadCloser
	err  error
}

func (s stubStreamer) Stream(context.Context, []message.Message) (*sse.Stream, error) {
	if s.err != nil {
		return nil, s.err
	}
	return sse.NewStream(s.open(), quiet), nil
}

func replying(body string) stubStreamer {
	return stubStreamer{open: func() io.ReadCloser {
		return io.NopCloser(strings.NewReader(body))
	}}
}

// stubLoader serves attachments from memory.
type stubLoader map[string]attachment.File

func (l stubLoader) LoadAttachment(path string) (attachment.File, error) {
	f, ok := l[path]
	if !ok {
		return attachment.File{}, errors.New("no such file")
	}
	return f, nil
}

func newTestModel(st transport.Streamer, files stubLoader) appModel {
	sess := engine.NewSession("test", st, nil, quiet)
	m := newAppModel(context.Background(), files, sess)
	m.inputBox.enable()
	return m
}

// update runs msg through the model and returns the resulting model.
func update(m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	next, cmd := m.Update(msg)
	switch v := next.(type) {
	case *appModel:
		return *v, cmd
	case appModel:
		return v, cmd
	}
	panic("unexpected model type")
}

func TestModel_ViewBeforeResize(t *testing.T) {
	m := newTestModel(replying(done), nil)
	assert.Equal(t, "Loading...", m.View())

	m, _ = update(m, tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.NotEqual(t, "Loading...", m.View())
	assert.Equal(t, 80, m.statusBar.width)
}

func TestModel_SubmitStartsStreaming(t *testing.T) {
	m := newTestModel(replying(done), nil)

	m, cmd := update(m, inputSubmitMsg{text: "hello"})
	require.NotNil(t, cmd)

	assert.Equal(t, stateStreaming, m.state)
	assert.False(t, m.inputBox.enabled)
	assert.True(t, m.chatView.processing)
	assert.Equal(t, 0, m.sendBase)
}

func TestModel_DeltaOnlyWhileStreaming(t *testing.T) {
	m := newTestModel(replying(done), nil)
	reply := message.NewText(role.Assistant, "partial")

	m, _ = update(m, deltaMsg{msg: reply})
	assert.Empty(t, m.chatView.streaming)

	m, _ = update(m, inputSubmitMsg{text: "hello"})
	m, _ = update(m, deltaMsg{msg: reply})
	assert.Equal(t, "partial", m.chatView.streaming)
}

func TestModel_SendCompleteCommitsReply(t *testing.T) {
	m := newTestModel(replying(frame("Hi ")+frame("there")+done), nil)

	m, _ = update(m, inputSubmitMsg{text: "hello"})
	_, err := m.sess.Send(context.Background(), "hello")
	require.NoError(t, err)

	m, cmd := update(m, sendCompleteMsg{duration: time.Second})
	require.NotNil(t, cmd)

	assert.Equal(t, stateIdle, m.state)
	assert.True(t, m.inputBox.enabled)
	assert.False(t, m.chatView.processing)
	assert.Empty(t, m.chatView.streaming)
	assert.Equal(t, 2, m.statusBar.messages)
	assert.Equal(t, time.Second, m.statusBar.duration)
}

func TestModel_RollbackRestoresInput(t *testing.T) {
	m := newTestModel(stubStreamer{err: &transport.RateLimitError{Message: "slow down"}}, nil)

	m, _ = update(m, inputSubmitMsg{text: "hello"})
	_, err := m.sess.Send(context.Background(), "hello")
	require.Error(t, err)

	m, _ = update(m, sendCompleteMsg{err: err})

	assert.Equal(t, stateIdle, m.state)
	assert.Equal(t, "hello", m.inputBox.value())
	assert.Equal(t, 0, m.statusBar.messages)
}

func TestModel_PartialReplyIsNotRestored(t *testing.T) {
	st := stubStreamer{open: func() io.ReadCloser {
		return io.NopCloser(io.MultiReader(
			strings.NewReader(frame("Hel")),
			errReader{errors.New("connection reset")},
		))
	}}
	m := newTestModel(st, nil)

	m, _ = update(m, inputSubmitMsg{text: "hello"})
	_, err := m.sess.Send(context.Background(), "hello")
	require.Error(t, err)

	m, _ = update(m, sendCompleteMsg{err: err})

	assert.Empty(t, m.inputBox.value())
	assert.Equal(t, 2, m.statusBar.messages)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func TestModel_EscCancelsStream(t *testing.T) {
	pr, pw := io.Pipe()
	m := newTestModel(stubStreamer{open: func() io.ReadCloser { return pr }}, nil)

	m, _ = update(m, inputSubmitMsg{text: "hello"})

	errc := make(chan error, 1)
	go func() {
		_, err := m.sess.Send(context.Background(), "hello")
		errc <- err
	}()

	_, err := pw.Write([]byte(frame("Hel")))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		msgs := m.sess.Messages()
		return len(msgs) == 2 && msgs[1].TextContent() == "Hel"
	}, 2*time.Second, 5*time.Millisecond)

	m, _ = update(m, tea.KeyMsg{Type: tea.KeyEsc})
	_, _ = pw.Write([]byte(frame("lo")))

	err = <-errc
	require.ErrorIs(t, err, context.Canceled)

	m, _ = update(m, sendCompleteMsg{err: err})
	assert.Equal(t, stateIdle, m.state)
	assert.Equal(t, "Hel", m.sess.Messages()[1].TextContent())
}

func TestModel_CtrlCQuits(t *testing.T) {
	m := newTestModel(replying(done), nil)

	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_Commands(t *testing.T) {
	img := attachment.FromBytes("moon.png", []byte("\x89PNG\r\n\x1a\n"))
	files := stubLoader{"moon.png": img}

	t.Run("quit", func(t *testing.T) {
		m := newTestModel(replying(done), files)
		_, cmd := update(m, inputSubmitMsg{text: "/quit"})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.QuitMsg{}, cmd())
	})

	t.Run("help stays idle", func(t *testing.T) {
		m := newTestModel(replying(done), files)
		m, cmd := update(m, inputSubmitMsg{text: "/help"})
		assert.NotNil(t, cmd)
		assert.Equal(t, stateIdle, m.state)
	})

	t.Run("attach", func(t *testing.T) {
		m := newTestModel(replying(done), files)
		m, _ = update(m, inputSubmitMsg{text: "/attach moon.png"})
		assert.Equal(t, stateIdle, m.state)
		require.Len(t, m.sess.Attachments(), 1)
		assert.Equal(t, "moon.png", m.statusBar.attachments[0].Name)
	})

	t.Run("attach missing file", func(t *testing.T) {
		m := newTestModel(replying(done), files)
		m, cmd := update(m, inputSubmitMsg{text: "/attach nope.png"})
		assert.NotNil(t, cmd)
		assert.Empty(t, m.sess.Attachments())
	})

	t.Run("attach without path", func(t *testing.T) {
		m := newTestModel(replying(done), files)
		m, _ = update(m, inputSubmitMsg{text: "/attach"})
		assert.Empty(t, m.sess.Attachments())
	})

	t.Run("clear", func(t *testing.T) {
		m := newTestModel(replying(done), files)
		m, _ = update(m, inputSubmitMsg{text: "/attach moon.png"})
		m, _ = update(m, inputSubmitMsg{text: "/clear"})
		assert.Empty(t, m.sess.Attachments())
		assert.Empty(t, m.statusBar.attachments)
	})

	t.Run("new", func(t *testing.T) {
		m := newTestModel(replying(frame("hi")+done), files)
		_, err := m.sess.Send(context.Background(), "hello")
		require.NoError(t, err)

		m, _ = update(m, inputSubmitMsg{text: "/new"})
		assert.Empty(t, m.sess.Messages())
		assert.Equal(t, stateIdle, m.state)
	})

	t.Run("unknown command is sent", func(t *testing.T) {
		m := newTestModel(replying(done), files)
		m, _ = update(m, inputSubmitMsg{text: "/moon phases"})
		assert.Equal(t, stateStreaming, m.state)
	})
}

func TestModel_SubmitClearsAttachmentStatus(t *testing.T) {
	img := attachment.FromBytes("moon.png", []byte("\x89PNG\r\n\x1a\n"))
	m := newTestModel(replying(done), stubLoader{"moon.png": img})

	m, _ = update(m, inputSubmitMsg{text: "/attach moon.png"})
	require.Len(t, m.statusBar.attachments, 1)

	m, _ = update(m, inputSubmitMsg{text: "what is this?"})
	assert.Empty(t, m.statusBar.attachments)
}

func TestModel_EnterSendsAttachmentOnly(t *testing.T) {
	img := attachment.FromBytes("moon.png", []byte("\x89PNG\r\n\x1a\n"))
	m := newTestModel(replying(done), stubLoader{"moon.png": img})

	_, cmd := update(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd, "nothing to send")

	m, _ = update(m, inputSubmitMsg{text: "/attach moon.png"})
	require.True(t, m.inputBox.attached)

	m, cmd = update(m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, inputSubmitMsg{text: ""}, cmd())

	m, _ = update(m, inputSubmitMsg{text: ""})
	assert.Equal(t, stateStreaming, m.state)
	assert.False(t, m.inputBox.attached)

	_, err := m.sess.Send(context.Background(), "")
	require.NoError(t, err)
	msgs := m.sess.Messages()
	require.Len(t, msgs, 1)
	assert.Len(t, msgs[0].Content.Parts(), 2)
}

func TestModel_TickOnlyWhileStreaming(t *testing.T) {
	m := newTestModel(replying(done), nil)

	_, cmd := update(m, tickMsg(time.Now()))
	assert.Nil(t, cmd)

	m, _ = update(m, inputSubmitMsg{text: "hello"})
	before := m.chatView.spinnerIdx
	m, cmd = update(m, tickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.Equal(t, before+1, m.chatView.spinnerIdx)
}

func TestModel_NetworkErrorNotice(t *testing.T) {
	m := newTestModel(stubStreamer{err: &transport.StatusError{Code: http.StatusBadGateway, Message: "bad"}}, nil)

	m, _ = update(m, inputSubmitMsg{text: "hello"})
	_, err := m.sess.Send(context.Background(), "hello")
	require.Error(t, err)

	m, cmd := update(m, sendCompleteMsg{err: err})
	assert.NotNil(t, cmd)
	assert.Equal(t, "hello", m.inputBox.value())
}
