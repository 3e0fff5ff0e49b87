package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ShayCichocki/rill/internal/api"
	"github.com/ShayCichocki/rill/internal/cascade"
	"github.com/ShayCichocki/rill/internal/state"
	"github.com/ShayCichocki/rill/internal/tui"
)

func runInteractive() error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := tui.NewApp(sess.policy.MaxEscalations())
	program := tui.NewProgram(app)

	prompter := tui.NewProgramPrompter(program.Send)
	loop := sess.newLoop(prompter)

	conv, err := sess.db.CreateConversation("interactive session")
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	loop.SetStreamHandler(func(ev api.StreamEvent) {
		program.Send(tui.StreamMsg{Event: ev})
	})
	loop.SetEventHandler(func(ev cascade.Event) {
		// Persistence failures must not interrupt the conversation.
		if err := sess.db.RecordCascadeEvent(conv.ID, ev); err != nil {
			sess.debug.Printf("record cascade event: %v", err)
		}
		sess.debug.Printf("%s: %s -> %s (%s)", ev.Kind, ev.FromTier, ev.ToTier, ev.Reason)
	})

	app.SetStatusProvider(func() (string, int) {
		tier, ok := loop.CurrentTier()
		if !ok {
			return "unrouted", 0
		}
		return sess.tierDisplay(tier), loop.EscalationsUsed()
	})

	app.SetTaskSubmitHandler(func(task string) {
		go func() {
			result, err := loop.RunTask(ctx, systemPrompt, task)
			program.Send(tui.TaskDoneMsg{Result: result, Err: err})
		}()
	})

	_, runErr := program.Run()

	status := state.ConversationCompleted
	if runErr != nil {
		status = state.ConversationFailed
	}
	if err := sess.db.EndConversation(conv.ID, status); err != nil {
		sess.debug.Printf("end conversation: %v", err)
	}

	return runErr
}
