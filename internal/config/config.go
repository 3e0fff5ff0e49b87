// Package config handles configuration loading and management for Rill.
// It supports XDG config paths, project-level overrides, and environment
// variables, and translates the operator's cascade policy into a validated
// routing config before any conversation starts.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/rill/internal/cascade"
)

// Config holds all configuration for Rill.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Cascade   CascadeConfig   `mapstructure:"cascade"`
	Tools     ToolsConfig     `mapstructure:"tools"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// UseBedrock routes API calls through AWS Bedrock instead of the
	// direct API.
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// CascadeConfig is the operator-facing cascade policy as it appears in the
// YAML file. BuildPolicy converts it to the validated cascade.Config the
// router consumes.
type CascadeConfig struct {
	// MaxEscalations caps escalations per conversation.
	MaxEscalations int `mapstructure:"max_escalations"`
	// Tiers is the ordered chain, cheapest first.
	Tiers []TierEntry `mapstructure:"tiers"`
	// Levels maps complexity level names to tier names.
	Levels map[string]string `mapstructure:"levels"`
}

// TierEntry declares one tier of the chain.
type TierEntry struct {
	Name        string  `mapstructure:"name"`
	DisplayName string  `mapstructure:"display_name"`
	Model       string  `mapstructure:"model"`
	Cost        float64 `mapstructure:"cost"`
}

// ToolsConfig holds tool execution settings.
type ToolsConfig struct {
	// BashTimeout is the default timeout for Bash tool commands.
	BashTimeout time.Duration `mapstructure:"bash_timeout"`
	// MaxIterations caps agent loop iterations per task.
	MaxIterations int `mapstructure:"max_iterations"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY)
// 2. Project config (.rill.yaml in current directory or parent)
// 3. User config (~/.config/rill/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// BuildPolicy converts the operator's cascade section into a validated
// routing policy. An empty section yields the built-in default policy. Any
// inconsistency is a startup failure: the caller must abort rather than
// accept conversations under a broken policy.
func (c *Config) BuildPolicy() (*cascade.Config, error) {
	if len(c.Cascade.Tiers) == 0 {
		return cascade.DefaultConfig(), nil
	}

	chain := make([]cascade.Tier, 0, len(c.Cascade.Tiers))
	info := make(map[cascade.Tier]cascade.TierInfo, len(c.Cascade.Tiers))
	for _, entry := range c.Cascade.Tiers {
		if entry.Name == "" {
			return nil, fmt.Errorf("%w: tier with empty name", cascade.ErrInvalidConfig)
		}
		tier := cascade.Tier(entry.Name)
		chain = append(chain, tier)
		display := entry.DisplayName
		if display == "" {
			display = entry.Name
		}
		info[tier] = cascade.TierInfo{
			DisplayName: display,
			Model:       entry.Model,
			CostWeight:  entry.Cost,
		}
	}

	levels := make(map[cascade.Level]cascade.Tier, len(c.Cascade.Levels))
	for name, tierName := range c.Cascade.Levels {
		level, err := cascade.ParseLevel(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cascade.ErrInvalidConfig, err)
		}
		levels[level] = cascade.Tier(tierName)
	}

	return cascade.NewConfig(chain, levels, c.Cascade.MaxEscalations, info)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values. The cascade defaults mirror
// cascade.DefaultConfig so a config file that only overrides one section
// still yields a complete policy.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.use_bedrock", false)

	v.SetDefault("cascade.max_escalations", 2)

	v.SetDefault("tools.bash_timeout", "2m")
	v.SetDefault("tools.max_iterations", 50)
}

// getUserConfigDir returns the XDG config directory for Rill.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rill")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "rill")
	}
	return filepath.Join(home, ".config", "rill")
}

// findProjectConfig searches for .rill.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".rill.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Cascade: CascadeConfig{
			MaxEscalations: 2,
		},
		Tools: ToolsConfig{
			BashTimeout:   2 * time.Minute,
			MaxIterations: 50,
		},
	}
}
