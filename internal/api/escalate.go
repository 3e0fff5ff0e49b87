package api

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ShayCichocki/rill/internal/cascade"
)

// Escalator applies the Escalate tool against the conversation's routing
// state. A granted request moves the conversation up exactly one chain
// step; a denied request is reported back to the model as a normal tool
// result so it continues at the current tier.
type Escalator struct {
	router *cascade.Router
	policy *cascade.Config
}

// NewEscalator creates an escalator bound to the given routing policy.
func NewEscalator(policy *cascade.Config) *Escalator {
	return &Escalator{router: cascade.NewRouter(), policy: policy}
}

// EscalateOutcome describes what happened to an escalation request.
type EscalateOutcome struct {
	Granted bool
	Tier    cascade.Tier
	Reason  string
}

// Apply handles one Escalate tool call. It returns both the tool result to
// send back to the model and a structured outcome for the caller. Only a
// nil error with Granted=true means the active tier changed.
func (e *Escalator) Apply(cctx *cascade.Context, input json.RawMessage) (ToolResult, EscalateOutcome, error) {
	var params struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(input, &params); err != nil {
		return ToolResult{
			Content: fmt.Sprintf("Invalid parameters: %v", err),
			IsError: true,
		}, EscalateOutcome{}, nil
	}
	if params.Reason == "" {
		params.Reason = "model requested a more capable tier"
	}

	tier, err := e.router.Escalate(params.Reason, e.policy, cctx)
	if err != nil {
		if errors.Is(err, cascade.ErrEscalationExhausted) {
			current, _ := cctx.CurrentTier()
			return ToolResult{
				Content: fmt.Sprintf(
					"Escalation denied (%v). Continue working at the current tier (%s).",
					err, tierName(e.policy, current)),
			}, EscalateOutcome{Granted: false, Tier: current, Reason: params.Reason}, nil
		}
		return ToolResult{}, EscalateOutcome{}, err
	}

	return ToolResult{
		Content: fmt.Sprintf("Escalation granted. Now running at the %s tier.", tierName(e.policy, tier)),
	}, EscalateOutcome{Granted: true, Tier: tier, Reason: params.Reason}, nil
}

// tierName returns the display name for a tier, falling back to the tier
// id itself.
func tierName(cfg *cascade.Config, t cascade.Tier) string {
	if info, err := cfg.Info(t); err == nil && info.DisplayName != "" {
		return info.DisplayName
	}
	return string(t)
}
