package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rill/internal/api"
	"github.com/ShayCichocki/rill/internal/cascade"
	"github.com/ShayCichocki/rill/internal/permissions"
	"github.com/ShayCichocki/rill/internal/state"
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a single task without the TUI",
	Long: `Run one task to completion and print the output.

The task is classified and routed exactly as in interactive mode, including
tier escalation and permission prompts (answered on stdin). Useful for
scripting and for quick one-off tasks.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnce(strings.Join(args, " "))
	},
}

// stdinPrompter collects permission decisions from the terminal.
type stdinPrompter struct {
	reader *bufio.Reader
}

func (p *stdinPrompter) Ask(ctx context.Context, req permissions.Request) (permissions.Decision, error) {
	warn := color.New(color.FgYellow, color.Bold)
	warn.Printf("\n%s wants to run:\n", req.Tool)
	fmt.Printf("  %s\n", req.Target)
	if req.Detail != "" {
		color.New(color.Faint).Printf("  %s\n", req.Detail)
	}
	fmt.Print("Allow? [y]es once / [a]lways / [n]o: ")

	line, err := p.reader.ReadString('\n')
	if err != nil {
		return permissions.DecisionDeny, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return permissions.DecisionAllowOnce, nil
	case "a", "always":
		return permissions.DecisionAllowAlways, nil
	default:
		return permissions.DecisionDeny, nil
	}
}

func runOnce(task string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := sess.newLoop(&stdinPrompter{reader: bufio.NewReader(os.Stdin)})

	conv, err := sess.db.CreateConversation(truncateTitle(task))
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	loop.SetEventHandler(func(ev cascade.Event) {
		// Persistence failures must not interrupt the task.
		if err := sess.db.RecordCascadeEvent(conv.ID, ev); err != nil {
			sess.debug.Printf("record cascade event: %v", err)
		}
		sess.debug.Printf("%s: %s -> %s (%s)", ev.Kind, ev.FromTier, ev.ToTier, ev.Reason)
	})

	dim := color.New(color.Faint)
	tierColor := color.New(color.FgYellow)
	loop.SetStreamHandler(func(ev api.StreamEvent) {
		switch ev.Type {
		case "text":
			fmt.Println(ev.Content)
		case "tool_use":
			dim.Printf("  ⚙ %s\n", api.FormatToolAction(ev.Tool, ev.Input))
		case "tier":
			tierColor.Printf("  ▲ %s\n", ev.Content)
		case "error":
			color.New(color.FgRed).Fprintf(os.Stderr, "  ✗ %s\n", ev.Content)
		}
	})

	result, runErr := loop.RunTask(ctx, systemPrompt, task)

	status := state.ConversationCompleted
	if runErr != nil {
		status = state.ConversationFailed
	}
	if err := sess.db.EndConversation(conv.ID, status); err != nil {
		sess.debug.Printf("end conversation: %v", err)
	}

	if result != nil {
		dim.Printf("\n%s tier · %d tool calls · %d in / %d out tokens\n",
			sess.tierDisplay(result.Tier), result.ToolCalls, result.TokensIn, result.TokensOut)
	}

	return runErr
}

// truncateTitle shortens a task to a conversation title.
func truncateTitle(task string) string {
	title := strings.TrimSpace(task)
	if len(title) > 80 {
		title = title[:77] + "..."
	}
	return title
}
