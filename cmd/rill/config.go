package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/rill/internal/config"
)

// configDump mirrors the config file layout for display.
type configDump struct {
	Anthropic struct {
		APIKey     string `yaml:"api_key"`
		UseBedrock bool   `yaml:"use_bedrock"`
		AWSRegion  string `yaml:"aws_region,omitempty"`
		AWSProfile string `yaml:"aws_profile,omitempty"`
	} `yaml:"anthropic"`
	Cascade struct {
		MaxEscalations int               `yaml:"max_escalations"`
		Tiers          []tierDump        `yaml:"tiers,omitempty"`
		Levels         map[string]string `yaml:"levels,omitempty"`
	} `yaml:"cascade"`
	Tools struct {
		BashTimeout   time.Duration `yaml:"bash_timeout"`
		MaxIterations int           `yaml:"max_iterations"`
	} `yaml:"tools"`
}

type tierDump struct {
	Name        string  `yaml:"name"`
	DisplayName string  `yaml:"display_name,omitempty"`
	Model       string  `yaml:"model"`
	Cost        float64 `yaml:"cost"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and cascade policy",
	Long: `Display the effective configuration after merging defaults, the user
config (~/.config/rill/config.yaml), the project config (.rill.yaml), and
environment variables.

The cascade section is validated the same way a session would validate it,
so this command doubles as a policy check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		fmt.Printf("user config:    %s\n", config.GetUserConfigPath())
		if project := config.GetProjectConfigPath(); project != "" {
			fmt.Printf("project config: %s\n", project)
		}
		key, source, _ := config.ResolveAPIKey(cfg)
		fmt.Printf("api key:        %s (%s)\n", config.MaskAPIKey(key), source)
		fmt.Println()

		var dump configDump
		dump.Anthropic.APIKey = config.MaskAPIKey(key)
		dump.Anthropic.UseBedrock = cfg.Anthropic.UseBedrock
		dump.Anthropic.AWSRegion = cfg.Anthropic.AWSRegion
		dump.Anthropic.AWSProfile = cfg.Anthropic.AWSProfile
		dump.Cascade.MaxEscalations = cfg.Cascade.MaxEscalations
		dump.Cascade.Levels = cfg.Cascade.Levels
		for _, t := range cfg.Cascade.Tiers {
			dump.Cascade.Tiers = append(dump.Cascade.Tiers, tierDump{
				Name:        t.Name,
				DisplayName: t.DisplayName,
				Model:       t.Model,
				Cost:        t.Cost,
			})
		}
		dump.Tools.BashTimeout = cfg.Tools.BashTimeout
		dump.Tools.MaxIterations = cfg.Tools.MaxIterations

		out, err := yaml.Marshal(dump)
		if err != nil {
			return err
		}
		os.Stdout.Write(out)

		policy, err := cfg.BuildPolicy()
		if err != nil {
			return fmt.Errorf("cascade policy: %w", err)
		}

		fmt.Println("\nresolved tier chain:")
		for _, tier := range policy.Chain() {
			info, _ := policy.Info(tier)
			fmt.Printf("  %-10s %-12s %s\n", tier, info.DisplayName, info.Model)
		}
		fmt.Printf("max escalations per conversation: %d\n", policy.MaxEscalations())

		return nil
	},
}
