package tui

import (
	"github.com/ShayCichocki/rill/internal/api"
	"github.com/ShayCichocki/rill/internal/permissions"
)

// TaskSubmittedMsg is sent when the user submits a task.
type TaskSubmittedMsg struct {
	Task string
}

// StreamMsg carries one agent stream event into the UI.
type StreamMsg struct {
	Event api.StreamEvent
}

// TaskDoneMsg is sent when a task finishes, successfully or not.
type TaskDoneMsg struct {
	Result *api.TaskResult
	Err    error
}

// PermissionRequestMsg asks the UI to collect a permission decision. The
// agent goroutine blocks on Resp until the user answers.
type PermissionRequestMsg struct {
	Req  permissions.Request
	Resp chan permissions.Decision
}

// formatTool renders a tool_use event as a one-line activity description.
func formatTool(ev api.StreamEvent) string {
	return api.FormatToolAction(ev.Tool, ev.Input)
}
