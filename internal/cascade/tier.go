// Package cascade implements tier routing for conversations: it classifies
// incoming tasks by complexity, maps the classification to an execution tier
// under an operator-defined policy, and manages the bounded escalation state
// of each conversation.
package cascade

// Tier identifies an execution tier: a capability/cost class of the
// reasoning backend. The set of tiers and their ordering come from the
// Config tier chain, not from this type.
type Tier string

// Tier names used by the default policy. Operators may define their own
// chain; these exist so defaults and tests have stable values.
const (
	TierFast     Tier = "fast"
	TierStandard Tier = "standard"
	TierAdvanced Tier = "advanced"
	TierFrontier Tier = "frontier"
)

// TierInfo is per-tier metadata carried by the policy. DisplayName and
// CostWeight are observability-only; Model is consumed by the agent loop to
// configure its backend client. None of these influence routing decisions.
type TierInfo struct {
	DisplayName string
	Model       string
	CostWeight  float64
}

func (t Tier) String() string {
	return string(t)
}
