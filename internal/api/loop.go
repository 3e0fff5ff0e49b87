package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/rill/internal/cascade"
)

// AgentLoop manages the API call and tool execution cycle for one
// conversation. Each new top-level task is classified and routed to an
// execution tier before the first API call; the Escalate tool can raise
// the tier mid-conversation, at which point subsequent calls use the
// higher tier's model.
type AgentLoop struct {
	client        *Client
	executor      *ToolExecutor
	analyzer      cascade.Analyzer
	router        *cascade.Router
	escalator     *Escalator
	policy        *cascade.Config
	cctx          *cascade.Context
	onStream      func(StreamEvent)
	onEvent       func(cascade.Event)
	maxIterations int

	// recent task texts and failure notes, fed back into classification
	history []string
}

// StreamEvent represents an event during agent execution for streaming to UI.
type StreamEvent struct {
	Type    string // "text", "tool_use", "tool_result", "tier", "done", "error"
	Content string
	Tool    string
	Input   json.RawMessage
	Tier    cascade.Tier
}

// TaskResult contains the results of running one top-level task.
type TaskResult struct {
	Output     string
	Tier       cascade.Tier
	TokensIn   int64
	TokensOut  int64
	ToolCalls  int
	Iterations int
}

// AgentLoopConfig contains configuration for the agent loop.
type AgentLoopConfig struct {
	Client        *Client
	Executor      *ToolExecutor
	Analyzer      cascade.Analyzer
	Policy        *cascade.Config
	MaxIterations int // Max API calls per task before stopping (0 = default)
}

// NewAgentLoop creates an agent loop with a fresh routing context.
func NewAgentLoop(cfg AgentLoopConfig) *AgentLoop {
	maxIter := cfg.MaxIterations
	if maxIter == 0 {
		maxIter = 50
	}

	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = cascade.NewHeuristicAnalyzer()
	}

	return &AgentLoop{
		client:        cfg.Client,
		executor:      cfg.Executor,
		analyzer:      analyzer,
		router:        cascade.NewRouter(),
		escalator:     NewEscalator(cfg.Policy),
		policy:        cfg.Policy,
		cctx:          cascade.NewContext(),
		maxIterations: maxIter,
	}
}

// SetStreamHandler sets a callback for streaming events during execution.
func (l *AgentLoop) SetStreamHandler(fn func(StreamEvent)) {
	l.onStream = fn
}

// SetEventHandler sets a callback invoked for every routing event
// (classification and escalation), for persistence.
func (l *AgentLoop) SetEventHandler(fn func(cascade.Event)) {
	l.onEvent = fn
}

// CurrentTier returns the conversation's active tier, if one has been
// selected.
func (l *AgentLoop) CurrentTier() (cascade.Tier, bool) {
	return l.cctx.CurrentTier()
}

// EscalationsUsed returns how many escalations the conversation has spent.
func (l *AgentLoop) EscalationsUsed() int {
	return l.cctx.EscalationCount()
}

// Policy returns the routing policy the loop was built with.
func (l *AgentLoop) Policy() *cascade.Config {
	return l.policy
}

// emit sends a stream event if a handler is configured.
func (l *AgentLoop) emit(event StreamEvent) {
	if l.onStream != nil {
		l.onStream(event)
	}
}

// recordLatest forwards the newest routing event to the event handler.
func (l *AgentLoop) recordLatest() {
	if l.onEvent == nil {
		return
	}
	hist := l.cctx.History()
	if len(hist) > 0 {
		l.onEvent(hist[len(hist)-1])
	}
}

// RunTask classifies and executes one top-level user task. Classification
// happens once per task; intermediate tool-call steps reuse the selected
// tier. The tier can only move up, and only through the Escalate tool.
func (l *AgentLoop) RunTask(ctx context.Context, systemPrompt, userPrompt string) (*TaskResult, error) {
	result := &TaskResult{}

	complexity := l.analyzer.Analyze(userPrompt, l.history)
	tier, err := l.router.SelectInitialTier(complexity, l.policy, l.cctx)
	if err != nil {
		return result, fmt.Errorf("tier selection failed: %w", err)
	}
	result.Tier = tier
	l.recordLatest()
	l.emit(StreamEvent{
		Type:    "tier",
		Tier:    tier,
		Content: fmt.Sprintf("%s complexity, %s tier", complexity.Level, tierName(l.policy, tier)),
	})

	l.history = append(l.history, userPrompt)

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
	}

	for result.Iterations < l.maxIterations {
		result.Iterations++

		// Re-resolve each iteration so a granted escalation takes
		// effect on the very next API call.
		current, _ := l.cctx.CurrentTier()
		info, err := l.policy.Info(current)
		if err != nil {
			return result, fmt.Errorf("tier metadata lookup failed: %w", err)
		}
		model := l.client.ResolveModel(info.Model)

		resp, err := l.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
			Model:     model,
			MaxTokens: 8192,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: messages,
			Tools:    ToolDefinitions(),
		})
		if err != nil {
			l.emit(StreamEvent{Type: "error", Content: err.Error()})
			l.history = append(l.history, fmt.Sprintf("previous task failed: %v", err))
			return result, fmt.Errorf("API call failed: %w", err)
		}

		result.TokensIn += resp.Usage.InputTokens
		result.TokensOut += resp.Usage.OutputTokens
		l.client.Tracker().Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion
		var textOutput string

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				textOutput += variant.Text
				l.emit(StreamEvent{Type: "text", Content: variant.Text})
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				result.ToolCalls++

				l.emit(StreamEvent{
					Type:  "tool_use",
					Tool:  variant.Name,
					Input: variant.Input,
				})
				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))

				toolResult, err := l.dispatch(ctx, variant.Name, variant.Input)
				if err != nil {
					return result, err
				}
				l.emit(StreamEvent{
					Type:    "tool_result",
					Tool:    variant.Name,
					Content: truncateForDisplay(toolResult.Content),
				})

				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, toolResult.Content, toolResult.IsError))
			}
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			result.Output = textOutput
			result.Tier, _ = l.cctx.CurrentTier()
			l.emit(StreamEvent{Type: "done"})
			return result, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	l.history = append(l.history, fmt.Sprintf("previous task failed: max iterations (%d) reached", l.maxIterations))
	return result, fmt.Errorf("max iterations (%d) reached", l.maxIterations)
}

// dispatch routes one tool call. The Escalate tool mutates routing state
// instead of running through the executor; every other tool is executed
// normally.
func (l *AgentLoop) dispatch(ctx context.Context, name string, input json.RawMessage) (ToolResult, error) {
	if name != EscalateToolName {
		return l.executor.Execute(ctx, name, input), nil
	}

	toolResult, outcome, err := l.escalator.Apply(l.cctx, input)
	if err != nil {
		l.emit(StreamEvent{Type: "error", Content: err.Error()})
		return ToolResult{}, fmt.Errorf("escalation failed: %w", err)
	}
	if outcome.Granted {
		l.recordLatest()
		l.emit(StreamEvent{
			Type:    "tier",
			Tier:    outcome.Tier,
			Content: fmt.Sprintf("escalated to %s: %s", tierName(l.policy, outcome.Tier), outcome.Reason),
		})
	}
	return toolResult, nil
}

func truncateForDisplay(s string) string {
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
