package main

import (
	"time"

	"github.com/germanamz/ares/pkg/chats/message"
)

// deltaMsg delivers the assistant message as it stands after a delta.
type deltaMsg struct {
	msg message.Message
}

// inputSubmitMsg carries the text the user submitted from the input box.
type inputSubmitMsg struct {
	text string
}

// sendCompleteMsg is returned by the tea.Cmd that calls sess.Send.
type sendCompleteMsg struct {
	err      error
	duration time.Duration
}

// initDrainMsg fires after a short delay so that stale terminal responses
// (e.g. OSC 11 background-color replies) are discarded before focusing input.
type initDrainMsg struct{}

// tickMsg drives the spinner while a reply is loading.
type tickMsg time.Time
