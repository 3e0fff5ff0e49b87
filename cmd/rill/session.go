package main

import (
	"fmt"
	"os"

	"github.com/ShayCichocki/rill/internal/api"
	"github.com/ShayCichocki/rill/internal/cascade"
	"github.com/ShayCichocki/rill/internal/config"
	"github.com/ShayCichocki/rill/internal/permissions"
	"github.com/ShayCichocki/rill/internal/safety"
	"github.com/ShayCichocki/rill/internal/state"
)

const systemPrompt = `You are Rill, a coding assistant working in the user's project directory.

You have tools to read, write, and edit files, run shell commands, and search
the codebase. Prefer reading before editing, and keep changes minimal.

If the task turns out to be beyond what you can solve at your current
capability (repeated failures, reasoning you cannot complete), call the
Escalate tool with a concrete reason. Escalation may be denied; if it is,
continue with your best effort at the current tier.`

// session bundles everything a conversation needs: configuration, the
// routing policy, project-scoped safety and permission state, the state
// database, and the API client.
type session struct {
	cfg       *config.Config
	policy    *cascade.Config
	workDir   string
	blacklist *safety.Blacklist
	store     *permissions.Store
	db        *state.DB
	client    *api.Client
	debug     *state.DebugLog
}

// newSession loads configuration and opens the project-scoped stores. A
// broken cascade policy aborts here, before any conversation starts.
func newSession() (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	policy, err := cfg.BuildPolicy()
	if err != nil {
		return nil, fmt.Errorf("cascade policy: %w", err)
	}

	// Bedrock sessions authenticate through AWS credentials; everything
	// else needs a key before any project resource is opened.
	var apiKey string
	if !cfg.Anthropic.UseBedrock {
		apiKey, _, err = config.ResolveAPIKey(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolve API key: %w", err)
		}
		if err := config.ValidateAPIKey(apiKey); err != nil {
			return nil, err
		}
	}

	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	blacklist, err := safety.LoadBlacklist(workDir)
	if err != nil {
		return nil, fmt.Errorf("load command blacklist: %w", err)
	}
	if err := blacklist.Watch(); err != nil {
		blacklist.Close()
		return nil, fmt.Errorf("watch command blacklist: %w", err)
	}

	store, err := permissions.OpenStore(workDir)
	if err != nil {
		blacklist.Close()
		return nil, fmt.Errorf("open permission store: %w", err)
	}

	db, err := state.OpenProject(workDir)
	if err != nil {
		blacklist.Close()
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		blacklist.Close()
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}

	client, err := api.NewClient(api.ClientConfig{
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		blacklist.Close()
		db.Close()
		return nil, err
	}

	debug := state.OpenDebugLog(workDir)
	debug.Printf("policy loaded: %d tiers, max escalations %d", len(cfg.Cascade.Tiers), policy.MaxEscalations())

	return &session{
		cfg:       cfg,
		policy:    policy,
		workDir:   workDir,
		blacklist: blacklist,
		store:     store,
		db:        db,
		client:    client,
		debug:     debug,
	}, nil
}

// Close releases the session's project resources.
func (s *session) Close() {
	s.blacklist.Close()
	s.db.Close()
	s.debug.Close()
}

// newLoop builds an agent loop gated by the given prompter.
func (s *session) newLoop(prompter permissions.Prompter) *api.AgentLoop {
	gate := permissions.NewGate(s.store, prompter)
	if rootYolo {
		gate.SkipAll(true)
	}
	executor := api.NewToolExecutor(s.workDir, gate, s.blacklist)
	executor.SetBashTimeout(s.cfg.Tools.BashTimeout)

	return api.NewAgentLoop(api.AgentLoopConfig{
		Client:        s.client,
		Executor:      executor,
		Policy:        s.policy,
		MaxIterations: s.cfg.Tools.MaxIterations,
	})
}

// tierDisplay resolves a tier's display name against the session policy.
func (s *session) tierDisplay(tier cascade.Tier) string {
	if info, err := s.policy.Info(tier); err == nil && info.DisplayName != "" {
		return info.DisplayName
	}
	return string(tier)
}
