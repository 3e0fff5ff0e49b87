package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/rill/internal/permissions"
)

// ProgramPrompter bridges permission checks from the agent goroutine into
// the UI. Ask blocks until the user answers or the context is cancelled.
type ProgramPrompter struct {
	send func(tea.Msg)
}

// NewProgramPrompter creates a prompter that delivers requests via send
// (typically tea.Program.Send).
func NewProgramPrompter(send func(tea.Msg)) *ProgramPrompter {
	return &ProgramPrompter{send: send}
}

// Ask implements permissions.Prompter.
func (p *ProgramPrompter) Ask(ctx context.Context, req permissions.Request) (permissions.Decision, error) {
	resp := make(chan permissions.Decision, 1)
	p.send(PermissionRequestMsg{Req: req, Resp: resp})

	select {
	case d := <-resp:
		return d, nil
	case <-ctx.Done():
		return permissions.DecisionDeny, ctx.Err()
	}
}

// PermissionPrompt renders the pending approval request and translates
// keystrokes into a decision.
type PermissionPrompt struct {
	pending *PermissionRequestMsg
	width   int
}

// NewPermissionPrompt creates an empty prompt.
func NewPermissionPrompt() *PermissionPrompt {
	return &PermissionPrompt{width: 80}
}

// SetWidth sets the prompt width.
func (pp *PermissionPrompt) SetWidth(width int) {
	pp.width = width
}

// Active reports whether a request is awaiting an answer.
func (pp *PermissionPrompt) Active() bool {
	return pp.pending != nil
}

// Show sets the pending request.
func (pp *PermissionPrompt) Show(msg PermissionRequestMsg) {
	pp.pending = &msg
}

// HandleKey processes one keystroke; it returns true when the keystroke
// answered the request.
func (pp *PermissionPrompt) HandleKey(key string) bool {
	if pp.pending == nil {
		return false
	}

	var decision permissions.Decision
	switch key {
	case "y", "Y":
		decision = permissions.DecisionAllowOnce
	case "a", "A":
		decision = permissions.DecisionAllowAlways
	case "n", "N", "escape":
		decision = permissions.DecisionDeny
	default:
		return false
	}

	pp.pending.Resp <- decision
	pp.pending = nil
	return true
}

// View renders the approval box.
func (pp *PermissionPrompt) View() string {
	if pp.pending == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("214")).
		Bold(true)
	hintStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240"))

	req := pp.pending.Req
	body := fmt.Sprintf("%s\n%s", titleStyle.Render(req.Tool+" wants to run:"), req.Target)
	if req.Detail != "" {
		body += "\n" + hintStyle.Render(req.Detail)
	}
	body += "\n\n" + hintStyle.Render("[y] allow once  [a] always allow  [n] deny")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("214")).
		Padding(0, 1).
		Width(pp.width - 2)

	return boxStyle.Render(body)
}
