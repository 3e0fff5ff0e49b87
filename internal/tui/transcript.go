package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Transcript displays a scrollable view of the conversation: user tasks,
// assistant text, tool activity, and routing changes.
type Transcript struct {
	// lines contains all rendered transcript lines.
	lines []string
	// scrollOffset is the current scroll position (0 = top).
	scrollOffset int
	width        int
	height       int
	// autoScroll keeps the view pinned to the newest line.
	autoScroll bool

	userStyle lipgloss.Style
	toolStyle lipgloss.Style
	tierStyle lipgloss.Style
	errStyle  lipgloss.Style
}

// NewTranscript creates a new Transcript instance.
func NewTranscript() *Transcript {
	return &Transcript{
		width:      80,
		height:     20,
		autoScroll: true,

		userStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),
		toolStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")),
		tierStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFC857")),
		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
	}
}

// SetSize sets the viewport dimensions.
func (tr *Transcript) SetSize(width, height int) {
	tr.width = width
	tr.height = height
	if tr.autoScroll {
		tr.scrollToBottom()
	}
}

// Update handles scroll keys.
func (tr *Transcript) Update(msg tea.Msg) (*Transcript, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "pgup":
			tr.scrollOffset = max(0, tr.scrollOffset-tr.height)
			tr.autoScroll = false
		case "pgdown":
			tr.scrollOffset = min(tr.maxOffset(), tr.scrollOffset+tr.height)
			if tr.scrollOffset == tr.maxOffset() {
				tr.autoScroll = true
			}
		case "end":
			tr.scrollToBottom()
			tr.autoScroll = true
		case "home":
			tr.scrollOffset = 0
			tr.autoScroll = false
		}
	}
	return tr, nil
}

// AddUser appends a user task to the transcript.
func (tr *Transcript) AddUser(text string) {
	tr.append(tr.userStyle.Render("you ") + text)
	tr.append("")
}

// AddText appends assistant text.
func (tr *Transcript) AddText(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		tr.append(line)
	}
}

// AddTool appends a tool activity line.
func (tr *Transcript) AddTool(action string) {
	tr.append(tr.toolStyle.Render("  ⚙ " + action))
}

// AddTier appends a routing change line.
func (tr *Transcript) AddTier(detail string) {
	tr.append(tr.tierStyle.Render("  ▲ " + detail))
}

// AddError appends an error line.
func (tr *Transcript) AddError(text string) {
	tr.append(tr.errStyle.Render("  ✗ " + text))
}

// AddBlank appends an empty separator line.
func (tr *Transcript) AddBlank() {
	tr.append("")
}

func (tr *Transcript) append(line string) {
	// Wrap long lines to the viewport width.
	if tr.width > 4 && len(line) > tr.width {
		wrapped := lipgloss.NewStyle().Width(tr.width).Render(line)
		tr.lines = append(tr.lines, strings.Split(wrapped, "\n")...)
	} else {
		tr.lines = append(tr.lines, line)
	}
	if tr.autoScroll {
		tr.scrollToBottom()
	}
}

func (tr *Transcript) maxOffset() int {
	return max(0, len(tr.lines)-tr.height)
}

func (tr *Transcript) scrollToBottom() {
	tr.scrollOffset = tr.maxOffset()
}

// View renders the visible window of the transcript.
func (tr *Transcript) View() string {
	start := min(tr.scrollOffset, tr.maxOffset())
	end := min(start+tr.height, len(tr.lines))

	visible := tr.lines[start:end]
	out := strings.Join(visible, "\n")

	// Pad to full height so the layout stays stable.
	for i := len(visible); i < tr.height; i++ {
		out += "\n"
	}
	return out
}
