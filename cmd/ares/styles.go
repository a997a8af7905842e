package main

import "github.com/charmbracelet/lipgloss"

// Centralized style definitions for the TUI.
var (
	// User message styles.
	userPrefixStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4")) // blue
	userBlockStyle  = lipgloss.NewStyle().PaddingLeft(1)

	// Assistant answer styles.
	answerPrefixStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")) // cyan
	answerBlockStyle  = lipgloss.NewStyle().PaddingLeft(1)

	// Attachment chips.
	attachmentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta

	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // magenta

	// General utility styles.
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray/dim
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray

	errorTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1")) // red
	errorBlockStyle = lipgloss.NewStyle().
			PaddingLeft(1).
			BorderLeft(true).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("1"))
)
