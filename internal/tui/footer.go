package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Footer renders the status line and keyboard hints.
type Footer struct {
	message string
	success bool
	busy    bool
	width   int

	tokensIn  int64
	tokensOut int64

	successStyle lipgloss.Style
	errorStyle   lipgloss.Style
	hintStyle    lipgloss.Style
}

// NewFooter creates a new Footer instance.
func NewFooter() *Footer {
	return &Footer{
		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}

// SetMessage sets the status message.
func (f *Footer) SetMessage(message string, success bool) {
	f.message = message
	f.success = success
}

// SetBusy marks whether a task is currently running.
func (f *Footer) SetBusy(busy bool) {
	f.busy = busy
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// AddTokens accumulates token usage for display.
func (f *Footer) AddTokens(in, out int64) {
	f.tokensIn += in
	f.tokensOut += out
}

// View renders the footer.
func (f *Footer) View() string {
	var status string
	switch {
	case f.busy:
		status = f.hintStyle.Render("working...")
	case f.message != "" && f.success:
		status = f.successStyle.Render(f.message)
	case f.message != "":
		status = f.errorStyle.Render(f.message)
	}

	tokens := ""
	if f.tokensIn > 0 || f.tokensOut > 0 {
		tokens = f.hintStyle.Render(fmt.Sprintf("  %d in / %d out", f.tokensIn, f.tokensOut))
	}

	hints := f.hintStyle.Render("enter send · pgup/pgdn scroll · ctrl+c quit")

	line := lipgloss.JoinHorizontal(lipgloss.Center, status, tokens)
	barStyle := lipgloss.NewStyle().
		Width(f.width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(lipgloss.Color("236"))

	if line == "" {
		return barStyle.Render(hints)
	}
	return barStyle.Render(lipgloss.JoinHorizontal(lipgloss.Center, line, "  ", hints))
}

// Height returns the footer height in lines.
func (f *Footer) Height() int {
	return 2
}
