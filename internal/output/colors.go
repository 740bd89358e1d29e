package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// colorEnabled reports whether stdout is attached to a terminal
func colorEnabled() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// WarnStyle renders a warning message with its prefix
func WarnStyle(msg string) string {
	if colorEnabled() {
		return warnStyle.Render("warning: ") + msg
	}
	return "warning: " + msg
}

// ErrorStyle renders an error message with its prefix
func ErrorStyle(msg string) string {
	if colorEnabled() {
		return errorStyle.Render("error: ") + msg
	}
	return "error: " + msg
}

// Dim renders secondary detail text, such as commit shas in listings
func Dim(msg string) string {
	if colorEnabled() {
		return dimStyle.Render(msg)
	}
	return msg
}
