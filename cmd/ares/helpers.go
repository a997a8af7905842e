package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/germanamz/ares/pkg/attachment"
	"github.com/germanamz/ares/pkg/engine"
	"github.com/germanamz/ares/pkg/transport"
	"github.com/joho/godotenv"
	"github.com/mattn/go-runewidth"
)

// thinkingMessages are displayed while waiting for the first delta.
var thinkingMessages = []string{
	"Thinking...",
	"Scanning the night sky...",
	"Consulting star charts...",
	"Aligning the telescope...",
	"Tracing orbits...",
	"Counting exoplanets...",
	"Listening to the cosmos...",
	"Charting a course...",
	"Measuring light years...",
	"Following the solar wind...",
}

// spinnerFrames are braille characters for smooth animation.
var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// mdRenderer renders markdown to terminal-formatted output.
var mdRenderer *glamour.TermRenderer

func initMarkdownRenderer(width int) {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	mdRenderer = r
}

// renderMarkdown converts markdown text to terminal-formatted output.
func renderMarkdown(text string) string {
	if mdRenderer == nil {
		return text
	}
	out, err := mdRenderer.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// truncate returns s shortened to at most n cells of display width, with
// "..." appended if truncated. Newlines are replaced with spaces for
// single-line display.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) <= n {
		return s
	}
	return runewidth.Truncate(s, n, "") + "..."
}

// fmtDuration formats a duration for display.
func fmtDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	min := int(d.Minutes())
	sec := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", min, sec)
}

// fmtBytes formats a byte count for display.
func fmtBytes(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// renderUserMessage formats a user message for the terminal scrollback,
// properly indenting continuation lines to align with the first line.
func renderUserMessage(text string, files []attachment.File) string {
	prefix := userPrefixStyle.Render("You > ")
	lines := strings.Split(text, "\n")

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(lines[0])
	for _, line := range lines[1:] {
		sb.WriteString("\n      ")
		sb.WriteString(line)
	}
	for _, f := range files {
		sb.WriteString("\n      ")
		sb.WriteString(attachmentStyle.Render("[" + f.Name + "]"))
	}
	return userBlockStyle.Render(sb.String())
}

// renderAssistantMessage formats assistant text as markdown.
func renderAssistantMessage(text string) string {
	return answerBlockStyle.Render(answerPrefixStyle.Render("Ares > ") + "\n" + renderMarkdown(text))
}

// errorNotice returns the title and description shown for a failed send.
func errorNotice(err error) (string, string) {
	var sendErr *engine.SendError
	if !errors.As(err, &sendErr) {
		return "Error", err.Error()
	}

	var desc string
	switch sendErr.Kind {
	case transport.KindRateLimited:
		desc = "Too many requests. Wait a moment and try again."
		var rl *transport.RateLimitError
		if errors.As(sendErr, &rl) && rl.RetryAfter > 0 {
			desc = fmt.Sprintf("Too many requests. Try again in %s.", rl.RetryAfter)
		}
		return "Rate limited", desc
	case transport.KindPaymentRequired:
		return "Payment required", "The AI service needs a top-up before it can answer."
	default:
		return "Error", "Could not get a reply from the assistant. Please try again."
	}
}

// renderError formats an error notice block.
func renderError(err error) string {
	title, desc := errorNotice(err)
	return errorBlockStyle.Render(errorTitleStyle.Render(title) + "\n" + desc)
}

// randomThinkingMessage returns a random thinking message.
func randomThinkingMessage() string {
	return thinkingMessages[rand.IntN(len(thinkingMessages))] //nolint:gosec // cosmetic randomness
}
