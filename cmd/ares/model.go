package main

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/chats/role"
	"github.com/germanamz/ares/pkg/engine"
)

// appState represents the application state machine.
type appState int

const (
	stateIdle appState = iota
	stateStreaming
)

// attachmentLoader loads a file for sending.
type attachmentLoader interface {
	LoadAttachment(path string) (attachment.File, error)
}

// appModel is the root bubbletea model.
type appModel struct {
	ctx       context.Context
	files     attachmentLoader
	sess      *engine.Session
	chatView  chatViewModel
	inputBox  inputModel
	statusBar statusBarModel
	state     appState
	width     int
	height    int
	sendStart time.Time
	sendBase  int // conversation length before the current send
}

func newAppModel(ctx context.Context, files attachmentLoader, sess *engine.Session) appModel {
	return appModel{
		ctx:      ctx,
		files:    files,
		sess:     sess,
		chatView: newChatView(),
		inputBox: newInput(),
		state:    stateIdle,
	}
}

func (m appModel) Init() tea.Cmd {
	// Delay focusing the input so that stale terminal escape-sequence
	// responses (e.g. OSC 11 background-color) are drained first.
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg {
		return initDrainMsg{}
	})
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case initDrainMsg:
		cmd := m.inputBox.enable()
		return m, cmd

	case inputSubmitMsg:
		return m.handleSubmit(msg)

	case deltaMsg:
		if m.state == stateStreaming {
			m.chatView.setDelta(msg.msg)
		}
		return m, nil

	case sendCompleteMsg:
		return m.handleSendComplete(msg)

	case tickMsg:
		if m.state == stateStreaming {
			m.chatView.advanceSpinner()
			return m, tickCmd()
		}
		return m, nil
	}

	if m.state == stateIdle {
		var cmd tea.Cmd
		m.inputBox, cmd = m.inputBox.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m appModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	sections := []string{m.chatView.View(), m.inputBox.View()}
	if status := m.statusBar.View(); status != "" {
		sections = append(sections, status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *appModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	initMarkdownRenderer(m.width - 4)
	m.inputBox.setWidth(m.width)
	m.statusBar.width = m.width

	return m, nil
}

func (m *appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.sess.Cancel()
		return m, tea.Quit

	case tea.KeyEsc:
		if m.state == stateStreaming {
			m.sess.Cancel()
			return m, nil
		}
	}

	if m.state == stateIdle {
		var cmd tea.Cmd
		m.inputBox, cmd = m.inputBox.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *appModel) handleSubmit(msg inputSubmitMsg) (tea.Model, tea.Cmd) {
	text := msg.text

	if strings.HasPrefix(text, "/") {
		if cmd, ok := m.handleCommand(text); ok {
			return m, cmd
		}
	}

	files := m.sess.Attachments()
	printCmd := m.chatView.commitUser(text, files)

	m.state = stateStreaming
	m.inputBox.disable()
	m.chatView.setProcessing(true)
	m.sendStart = time.Now()
	m.sendBase = len(m.sess.Messages())
	// Send takes the queued files with it.
	m.statusBar.attachments = nil
	m.inputBox.attached = false

	sess := m.sess
	ctx := m.ctx
	start := m.sendStart
	sendCmd := func() tea.Msg {
		_, err := sess.Send(ctx, text)
		return sendCompleteMsg{err: err, duration: time.Since(start)}
	}

	return m, tea.Sequence(printCmd, tea.Batch(sendCmd, tickCmd()))
}

// handleCommand runs a slash command. It reports false for unknown commands,
// which are sent as ordinary text.
func (m *appModel) handleCommand(text string) (tea.Cmd, bool) {
	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		m.sess.Cancel()
		return tea.Quit, true

	case "/help":
		return tea.Println(helpText()), true

	case "/attach":
		if arg == "" {
			return m.chatView.notice("usage: /attach <path>"), true
		}
		f, err := m.files.LoadAttachment(arg)
		if err != nil {
			return tea.Println(errorBlockStyle.Render(errorTitleStyle.Render("Attachment failed") + "\n" + err.Error())), true
		}
		m.sess.Attach(f)
		m.syncAttachments()
		return m.chatView.notice("attached " + f.Name + " (" + f.MimeType + ")"), true

	case "/clear":
		m.sess.ClearAttachments()
		m.syncAttachments()
		return m.chatView.notice("attachments cleared"), true

	case "/new":
		m.sess.Reset()
		m.statusBar = statusBarModel{width: m.width}
		m.syncAttachments()
		return m.chatView.notice("new conversation"), true
	}

	return nil, false
}

// syncAttachments mirrors the session's queued files into the status bar
// and the input box.
func (m *appModel) syncAttachments() {
	files := m.sess.Attachments()
	m.statusBar.attachments = files
	m.inputBox.attached = len(files) > 0
}

func (m *appModel) handleSendComplete(msg sendCompleteMsg) (tea.Model, tea.Cmd) {
	m.state = stateIdle
	m.chatView.setProcessing(false)
	m.statusBar.duration = msg.duration
	m.syncAttachments()

	msgs := m.sess.Messages()
	m.statusBar.messages = len(msgs)

	var reply string
	if len(msgs) > m.sendBase+1 {
		if last := msgs[len(msgs)-1]; last.Role == role.Assistant {
			reply = last.TextContent()
		}
	}

	cancelled := errors.Is(msg.err, context.Canceled)
	cmds := []tea.Cmd{m.chatView.commitReply(reply, cancelled)}

	var sendErr *engine.SendError
	switch {
	case errors.As(msg.err, &sendErr):
		cmds = append(cmds, tea.Println(renderError(sendErr)))
		if sendErr.RolledBack && strings.TrimSpace(m.inputBox.value()) == "" {
			m.inputBox.setValue(sendErr.Text)
		}
	case msg.err != nil && !cancelled && m.ctx.Err() == nil:
		cmds = append(cmds, tea.Println(renderError(msg.err)))
	}

	cmds = append(cmds, m.inputBox.enable())
	return m, tea.Sequence(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func helpText() string {
	return dimStyle.Render(
		"Commands:\n" +
			"  /attach <path>  Attach an image to the next message\n" +
			"  /clear          Drop pending attachments\n" +
			"  /new            Start a new conversation\n" +
			"  /help           Show this help message\n" +
			"  /quit           Exit the chat\n\n" +
			"Shortcuts:\n" +
			"  Enter           Submit message\n" +
			"  Alt+Enter       New line\n" +
			"  Esc             Stop the reply\n" +
			"  Ctrl+C          Exit",
	)
}
