// Package tui provides the terminal user interface for Rill: a single
// conversation transcript with tier-aware status, permission prompts, and
// a task input field.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// App is the main bubbletea model for the interactive session.
type App struct {
	header     *Header
	footer     *Footer
	transcript *Transcript
	input      *InputField
	prompt     *PermissionPrompt

	width    int
	height   int
	busy     bool
	quitting bool

	// onTaskSubmit runs the submitted task, typically on its own goroutine.
	onTaskSubmit func(task string)

	// status reports the current tier display name and escalations used.
	status func() (string, int)
}

// NewApp creates the interactive app. escalationsMax is the policy's
// per-conversation escalation cap, shown in the header.
func NewApp(escalationsMax int) *App {
	return &App{
		header:     NewHeader(escalationsMax),
		footer:     NewFooter(),
		transcript: NewTranscript(),
		input:      NewInputField(),
		prompt:     NewPermissionPrompt(),
	}
}

// SetTaskSubmitHandler sets the callback for task submissions.
func (a *App) SetTaskSubmitHandler(handler func(task string)) {
	a.onTaskSubmit = handler
}

// SetStatusProvider sets the function used to refresh the header's tier
// display after routing changes.
func (a *App) SetStatusProvider(fn func() (tierName string, escalations int)) {
	a.status = fn
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.input.Focus()
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.quitting = true
			return a, tea.Quit
		}

		// A pending approval captures the keyboard.
		if a.prompt.Active() {
			a.prompt.HandleKey(msg.String())
			return a, nil
		}

		switch msg.String() {
		case "pgup", "pgdown", "home", "end":
			var cmd tea.Cmd
			a.transcript, cmd = a.transcript.Update(msg)
			return a, cmd
		default:
			var cmd tea.Cmd
			a.input, cmd = a.input.Update(msg)
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case TaskSubmittedMsg:
		if a.busy {
			a.footer.SetMessage("a task is already running", false)
			return a, nil
		}
		a.busy = true
		a.footer.SetBusy(true)
		a.transcript.AddUser(msg.Task)
		if a.onTaskSubmit != nil {
			a.onTaskSubmit(msg.Task)
		}
		return a, nil

	case StreamMsg:
		a.applyStream(msg)
		return a, nil

	case TaskDoneMsg:
		a.busy = false
		a.footer.SetBusy(false)
		if msg.Err != nil {
			a.transcript.AddError(msg.Err.Error())
			a.footer.SetMessage("task failed", false)
		} else {
			a.footer.SetMessage("done", true)
		}
		if msg.Result != nil {
			a.footer.AddTokens(msg.Result.TokensIn, msg.Result.TokensOut)
		}
		a.transcript.AddBlank()
		return a, nil

	case PermissionRequestMsg:
		a.prompt.Show(msg)
		return a, nil
	}

	return a, nil
}

// applyStream renders one agent stream event into the transcript.
func (a *App) applyStream(msg StreamMsg) {
	ev := msg.Event
	switch ev.Type {
	case "text":
		a.transcript.AddText(ev.Content)
	case "tool_use":
		a.transcript.AddTool(formatTool(ev))
	case "tier":
		a.transcript.AddTier(ev.Content)
		a.refreshStatus()
	case "error":
		a.transcript.AddError(ev.Content)
	}
}

func (a *App) refreshStatus() {
	if a.status == nil {
		return
	}
	name, escalations := a.status()
	a.header.SetTier(name, escalations)
}

// updateSizes updates the sizes of child components based on terminal size.
func (a *App) updateSizes() {
	a.header.SetWidth(a.width)
	a.footer.SetWidth(a.width)
	a.input.SetWidth(a.width)
	a.prompt.SetWidth(a.width)

	inputHeight := 3
	promptHeight := 0
	if a.prompt.Active() {
		promptHeight = 6
	}
	transcriptHeight := a.height - a.header.Height() - a.footer.Height() - inputHeight - promptHeight
	a.transcript.SetSize(a.width, max(transcriptHeight, 3))
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	a.updateSizes()

	sections := []string{
		a.header.View(),
		a.transcript.View(),
	}
	if a.prompt.Active() {
		sections = append(sections, a.prompt.View())
	}
	sections = append(sections, a.input.View(), a.footer.View())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// NewProgram creates a bubbletea program for the app.
func NewProgram(app *App) *tea.Program {
	return tea.NewProgram(app, tea.WithAltScreen())
}
