package main

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/chats/message"
	"github.com/germanamz/ares/pkg/chats/role"
)

// chatViewModel renders the reply that is still streaming and prints
// committed content to the terminal scrollback via tea.Println.
type chatViewModel struct {
	streaming     string // assistant text received so far
	processing    bool   // true while a send is in flight
	spinnerIdx    int    // frame index for the processing spinner
	processingMsg string // random message shown while waiting for the first delta
}

func newChatView() chatViewModel {
	return chatViewModel{}
}

// View renders only the live portion: the streaming reply and the spinner.
// Committed content is printed to the terminal scrollback and is not part
// of this view.
func (m chatViewModel) View() string {
	var sb strings.Builder

	if m.streaming != "" {
		sb.WriteString(renderAssistantMessage(m.streaming))
		sb.WriteString("\n")
	}

	if m.processing {
		frame := spinnerFrames[m.spinnerIdx%len(spinnerFrames)]
		label := m.processingMsg
		if m.streaming != "" {
			label = "esc to stop"
		}
		fmt.Fprintf(&sb, "  %s %s\n",
			spinnerStyle.Render(frame),
			spinnerStyle.Render(label),
		)
	}

	return sb.String()
}

// setDelta replaces the live reply with the latest assistant message.
func (m *chatViewModel) setDelta(msg message.Message) {
	if msg.Role != role.Assistant || !m.processing {
		return
	}
	m.streaming = msg.TextContent()
}

// commitUser prints a submitted user message to the scrollback.
func (m *chatViewModel) commitUser(text string, files []attachment.File) tea.Cmd {
	return tea.Println(renderUserMessage(text, files))
}

// commitReply ends the live reply and prints text to the scrollback. An
// empty text prints nothing.
func (m *chatViewModel) commitReply(text string, cancelled bool) tea.Cmd {
	m.streaming = ""
	if text == "" {
		if cancelled {
			return tea.Println(dimStyle.Render("  (stopped)"))
		}
		return nil
	}

	out := "\n" + renderAssistantMessage(text)
	if cancelled {
		out += "\n" + dimStyle.Render("  (stopped)")
	}
	return tea.Println(out)
}

// notice prints an informational line to the scrollback.
func (m *chatViewModel) notice(s string) tea.Cmd {
	return tea.Println(dimStyle.Render(s))
}

// setProcessing sets the processing state and picks a random spinner message.
func (m *chatViewModel) setProcessing(on bool) {
	m.processing = on
	if on {
		m.processingMsg = randomThinkingMessage()
	}
}

func (m *chatViewModel) advanceSpinner() {
	m.spinnerIdx++
}
