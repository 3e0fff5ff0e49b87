// Package permissions gates mutating tool calls behind user approval.
// Read-only tools run freely; Write, Edit, and Bash ask the user unless a
// standing grant covers them. "Always" grants persist per project; "once"
// grants live only in the session cache.
package permissions

import (
	"context"
	"fmt"
	"sync"
)

// Decision is the user's answer to a permission prompt.
type Decision string

const (
	// DecisionAllowOnce permits this single call.
	DecisionAllowOnce Decision = "allow_once"
	// DecisionAllowAlways permits this tool for the project from now on.
	DecisionAllowAlways Decision = "allow_always"
	// DecisionDeny refuses the call.
	DecisionDeny Decision = "deny"
)

// Request describes the tool call awaiting approval.
type Request struct {
	// Tool is the tool name (Write, Edit, Bash, ...).
	Tool string
	// Target is what the call touches: a file path or a shell command.
	Target string
	// Detail is extra context shown to the user.
	Detail string
}

// Prompter asks the user for a decision. The TUI and the plain CLI each
// provide one.
type Prompter interface {
	Ask(ctx context.Context, req Request) (Decision, error)
}

// PrompterFunc adapts a function to the Prompter interface.
type PrompterFunc func(ctx context.Context, req Request) (Decision, error)

// Ask calls f.
func (f PrompterFunc) Ask(ctx context.Context, req Request) (Decision, error) {
	return f(ctx, req)
}

// readOnlyTools never require approval.
var readOnlyTools = map[string]bool{
	"Read":    true,
	"Glob":    true,
	"Grep":    true,
	"ListDir": true,
}

// Gate decides whether a tool call may proceed, consulting standing grants
// first and the Prompter otherwise. Safe for use from a single
// conversation loop; the grant store is shared and synchronized.
type Gate struct {
	prompter Prompter
	store    *Store

	mu      sync.Mutex
	session map[string]bool // tools granted for this session only
	skipAll bool
}

// NewGate creates a permission gate backed by the given store and prompter.
func NewGate(store *Store, prompter Prompter) *Gate {
	return &Gate{
		prompter: prompter,
		store:    store,
		session:  make(map[string]bool),
	}
}

// SkipAll disables prompting entirely (the --yolo path). Every call is
// allowed.
func (g *Gate) SkipAll(skip bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.skipAll = skip
}

// Check returns nil when the call may proceed and an error describing the
// refusal otherwise. A denial is not a tool failure; callers should report
// it in the tool result and carry on.
func (g *Gate) Check(ctx context.Context, req Request) error {
	if readOnlyTools[req.Tool] {
		return nil
	}

	g.mu.Lock()
	if g.skipAll || g.session[req.Tool] {
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	if g.store != nil && g.store.Allowed(req.Tool) {
		return nil
	}

	if g.prompter == nil {
		return fmt.Errorf("no approval available for %s", req.Tool)
	}

	decision, err := g.prompter.Ask(ctx, req)
	if err != nil {
		return fmt.Errorf("permission prompt: %w", err)
	}

	switch decision {
	case DecisionAllowOnce:
		return nil
	case DecisionAllowAlways:
		g.mu.Lock()
		g.session[req.Tool] = true
		g.mu.Unlock()
		if g.store != nil {
			if err := g.store.Grant(req.Tool); err != nil {
				// The grant still holds for this session.
				return nil
			}
		}
		return nil
	case DecisionDeny:
		return fmt.Errorf("user denied %s on %s", req.Tool, req.Target)
	default:
		return fmt.Errorf("unknown permission decision %q", decision)
	}
}
