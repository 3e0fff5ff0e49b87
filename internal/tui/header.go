package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the title bar with the conversation's routing status.
type Header struct {
	width          int
	tierName       string
	escalationsMax int
	escalations    int
}

// NewHeader creates a new Header.
func NewHeader(escalationsMax int) *Header {
	return &Header{
		width:          80,
		tierName:       "unrouted",
		escalationsMax: escalationsMax,
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetTier updates the displayed tier and escalation count.
func (h *Header) SetTier(tierName string, escalations int) {
	h.tierName = tierName
	h.escalations = escalations
}

// View renders the header.
func (h *Header) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("39")).
		Bold(true)

	tierStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFC857")).
		Bold(true)

	hintStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("243"))

	title := titleStyle.Render("rill")
	tier := tierStyle.Render(h.tierName)
	escalations := hintStyle.Render(
		fmt.Sprintf("escalations %d/%d", h.escalations, h.escalationsMax))

	left := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", tier, "  ", escalations)

	barStyle := lipgloss.NewStyle().
		Width(h.width).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("236"))

	return barStyle.Render(left)
}

// Height returns the header height in lines.
func (h *Header) Height() int {
	return 2 // content + bottom border
}
