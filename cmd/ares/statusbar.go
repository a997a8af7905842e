package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/germanamz/ares/pkg/attachment"
)

// statusBarModel shows pending attachments, the message count and timing of
// the last reply.
type statusBarModel struct {
	attachments []attachment.File
	messages    int
	duration    time.Duration
	width       int
}

func (m statusBarModel) View() string {
	var parts []string

	if n := len(m.attachments); n > 0 {
		names := make([]string, n)
		size := 0
		for i, f := range m.attachments {
			names[i] = f.Name
			size += len(f.DataURL)
		}
		parts = append(parts, fmt.Sprintf("attached: %s (%s)", strings.Join(names, ", "), fmtBytes(size)))
	}

	if m.messages > 0 {
		parts = append(parts, fmt.Sprintf("messages: %d", m.messages))
	}

	if m.duration > 0 {
		parts = append(parts, fmtDuration(m.duration))
	}

	if len(parts) == 0 {
		return ""
	}

	line := " " + strings.Join(parts, " · ")
	if m.width > 0 {
		line = truncate(line, m.width)
	}
	return statusStyle.Render(line)
}
