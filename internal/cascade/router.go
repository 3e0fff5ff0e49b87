package cascade

import "fmt"

// Router decides and advances a conversation's active tier. It is stateless
// and safe to share; all mutable routing state lives in the Context passed
// to each call, and the Router is the only component that writes to it.
// Calls for the same Context must be serialized by the caller (one
// conversation runs one sequential step loop).
type Router struct{}

// NewRouter creates a Router.
func NewRouter() *Router {
	return &Router{}
}

// SelectInitialTier looks up the complexity level in the policy's
// level-to-tier mapping, sets the conversation's tier, and records the
// classification. Call it once per new top-level user task, not for
// intermediate tool-call steps.
//
// Escalation state already earned is never reset: if the conversation has
// escalated above the mapped tier, the current tier stays where it is (the
// tier sequence of a Context is non-decreasing for its whole lifetime).
func (r *Router) SelectInitialTier(complexity Complexity, cfg *Config, ctx *Context) (Tier, error) {
	tier, err := cfg.TierForLevel(complexity.Level)
	if err != nil {
		return "", err
	}

	if current, ok := ctx.CurrentTier(); ok {
		if curIdx, mapped := cfg.tierIndex[current], cfg.tierIndex[tier]; mapped <= curIdx {
			tier = current
		}
	}

	ctx.setTier(tier)
	ctx.record(Event{
		Kind:       EventClassified,
		Complexity: &complexity,
		ToTier:     tier,
	})
	return tier, nil
}

// Escalate advances the conversation to the immediate next tier in the
// chain. It is the single authorized path to raise the tier; there is no
// de-escalation.
//
// It fails with ErrEscalationExhausted when the escalation cap is reached
// or the conversation is already at the topmost tier; both are routine,
// recoverable denials and the caller continues at the current tier. It fails
// with ErrContextNotInitialized when no initial tier was ever selected.
func (r *Router) Escalate(reason string, cfg *Config, ctx *Context) (Tier, error) {
	current, ok := ctx.CurrentTier()
	if !ok {
		return "", fmt.Errorf("%w: escalate called before initial tier selection", ErrContextNotInitialized)
	}

	if ctx.EscalationCount() >= cfg.MaxEscalations() {
		return "", fmt.Errorf("%w: limit of %d escalations reached", ErrEscalationExhausted, cfg.MaxEscalations())
	}

	next, ok := cfg.NextTier(current)
	if !ok {
		return "", fmt.Errorf("%w: already at top tier %q", ErrEscalationExhausted, current)
	}

	ctx.setTier(next)
	ctx.bumpEscalations()
	ctx.record(Event{
		Kind:     EventEscalated,
		Reason:   reason,
		FromTier: current,
		ToTier:   next,
	})
	return next, nil
}
