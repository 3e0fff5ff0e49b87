package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/rill/internal/state"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [conversation-id]",
	Short: "Show past conversations and their routing events",
	Long: `List recent conversations from the project state database.

With a conversation id, shows that conversation's routing history: how the
task was classified and every escalation, with tiers and reasons.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return err
		}

		db, err := state.OpenProject(workDir)
		if err != nil {
			return fmt.Errorf("open state database: %w", err)
		}
		defer db.Close()

		if err := db.Migrate(); err != nil {
			return fmt.Errorf("migrate state database: %w", err)
		}

		if len(args) == 1 {
			return showConversation(db, args[0])
		}
		return listConversations(db)
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum conversations to list")
}

func listConversations(db *state.DB) error {
	convs, err := db.ListConversations(historyLimit)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	dim := color.New(color.Faint)
	for _, conv := range convs {
		fmt.Printf("%s  %-9s  %s\n", conv.ID, conv.Status, conv.Title)
		dim.Printf("  started %s\n", conv.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func showConversation(db *state.DB, id string) error {
	conv, err := db.GetConversation(id)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", conv.Title, conv.Status)

	events, err := db.CascadeEvents(conv.ID)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("No routing events recorded.")
		return nil
	}

	tierColor := color.New(color.FgYellow)
	for _, ev := range events {
		ts := ev.CreatedAt.Format("15:04:05")
		switch ev.Kind {
		case "classified":
			fmt.Printf("  %s  classified %s → %s\n", ts, ev.Level, ev.ToTier)
		case "escalated":
			tierColor.Printf("  %s  escalated %s → %s", ts, ev.FromTier, ev.ToTier)
			if ev.Reason != "" {
				fmt.Printf("  (%s)", ev.Reason)
			}
			fmt.Println()
		default:
			fmt.Printf("  %s  %s → %s\n", ts, ev.Kind, ev.ToTier)
		}
	}
	return nil
}
