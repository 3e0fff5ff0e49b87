package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootYolo bool

var rootCmd = &cobra.Command{
	Use:   "rill",
	Short: "Tier-cascading coding assistant",
	Long: `Rill is an interactive coding assistant that routes each task to the
cheapest capable model tier and escalates, one bounded step at a time,
when the current tier proves insufficient.

With no arguments, launches an interactive session with a persistent TUI.
Tool calls that mutate the project (Write, Edit, Bash) require approval;
shell commands are screened against a project blacklist before they run.

Tier routing:
  - Each task is classified (low/medium/high/critical) from its text
  - The complexity level picks the starting tier from the cascade policy
  - The agent may request one-step escalations, up to a per-conversation cap
  - A conversation's tier never goes down`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootYolo, "yolo", false, "Skip all permission prompts")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
