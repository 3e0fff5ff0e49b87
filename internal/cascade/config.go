package cascade

import (
	"fmt"
)

// Config is the immutable routing policy: the ordered tier chain, the
// level-to-tier mapping for initial selection, and the per-conversation
// escalation cap. It is constructed and validated once at startup and then
// shared read-only across all conversations.
type Config struct {
	chain          []Tier
	tierIndex      map[Tier]int
	levelTiers     map[Level]Tier
	maxEscalations int
	info           map[Tier]TierInfo
}

// NewConfig builds and validates a Config.
//
// Validity rules:
//   - the chain has at least one tier, with no duplicates;
//   - declared cost weights strictly increase along the chain;
//   - maxEscalations is non-negative and at most len(chain)-1;
//   - every complexity level maps to a tier present in the chain.
func NewConfig(chain []Tier, levelTiers map[Level]Tier, maxEscalations int, info map[Tier]TierInfo) (*Config, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w: tier chain is empty", ErrInvalidConfig)
	}
	if maxEscalations < 0 {
		return nil, fmt.Errorf("%w: max_escalations is negative", ErrInvalidConfig)
	}
	if maxEscalations > len(chain)-1 {
		return nil, fmt.Errorf("%w: max_escalations %d exceeds the %d possible escalation steps",
			ErrInvalidConfig, maxEscalations, len(chain)-1)
	}

	tierIndex := make(map[Tier]int, len(chain))
	prevCost := 0.0
	for i, tier := range chain {
		if _, dup := tierIndex[tier]; dup {
			return nil, fmt.Errorf("%w: tier %q appears twice in the chain", ErrInvalidConfig, tier)
		}
		tierIndex[tier] = i

		meta, ok := info[tier]
		if !ok {
			return nil, fmt.Errorf("%w: tier %q has no metadata", ErrInvalidConfig, tier)
		}
		if i > 0 && meta.CostWeight <= prevCost {
			return nil, fmt.Errorf("%w: chain costs must strictly increase (%q: %.2f after %.2f)",
				ErrInvalidConfig, tier, meta.CostWeight, prevCost)
		}
		prevCost = meta.CostWeight
	}

	for _, level := range Levels {
		tier, ok := levelTiers[level]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoTierForLevel, level)
		}
		if _, ok := tierIndex[tier]; !ok {
			return nil, fmt.Errorf("%w: level %s maps to %q which is not in the chain",
				ErrUnknownTier, level, tier)
		}
	}

	cfg := &Config{
		chain:          append([]Tier{}, chain...),
		tierIndex:      tierIndex,
		levelTiers:     make(map[Level]Tier, len(levelTiers)),
		maxEscalations: maxEscalations,
		info:           make(map[Tier]TierInfo, len(info)),
	}
	for level, tier := range levelTiers {
		cfg.levelTiers[level] = tier
	}
	for tier, meta := range info {
		cfg.info[tier] = meta
	}
	return cfg, nil
}

// DefaultConfig returns the built-in four-tier policy used when the
// operator supplies none.
func DefaultConfig() *Config {
	cfg, err := NewConfig(
		[]Tier{TierFast, TierStandard, TierAdvanced, TierFrontier},
		map[Level]Tier{
			LevelLow:      TierFast,
			LevelMedium:   TierStandard,
			LevelHigh:     TierAdvanced,
			LevelCritical: TierFrontier,
		},
		2,
		map[Tier]TierInfo{
			TierFast:     {DisplayName: "Fast", Model: "claude-haiku-4-5-20251001", CostWeight: 1},
			TierStandard: {DisplayName: "Standard", Model: "claude-sonnet-4-5-20250929", CostWeight: 3},
			TierAdvanced: {DisplayName: "Advanced", Model: "claude-opus-4-1-20250805", CostWeight: 10},
			TierFrontier: {DisplayName: "Frontier", Model: "claude-opus-4-5-20251101", CostWeight: 15},
		},
	)
	if err != nil {
		// The built-in policy is validated by tests; reaching this is a bug.
		panic(err)
	}
	return cfg
}

// Chain returns a copy of the ordered tier chain.
func (c *Config) Chain() []Tier {
	return append([]Tier{}, c.chain...)
}

// TierForLevel returns the initial tier mapped to a complexity level.
func (c *Config) TierForLevel(level Level) (Tier, error) {
	tier, ok := c.levelTiers[level]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoTierForLevel, level)
	}
	return tier, nil
}

// NextTier returns the tier immediately above t in the chain, or false when
// t is the topmost tier.
func (c *Config) NextTier(t Tier) (Tier, bool) {
	idx, ok := c.tierIndex[t]
	if !ok || idx+1 >= len(c.chain) {
		return "", false
	}
	return c.chain[idx+1], true
}

// TopTier returns the last tier in the chain.
func (c *Config) TopTier() Tier {
	return c.chain[len(c.chain)-1]
}

// MaxEscalations returns the per-conversation escalation cap.
func (c *Config) MaxEscalations() int {
	return c.maxEscalations
}

// Info returns the metadata for a tier.
func (c *Config) Info(tier Tier) (TierInfo, error) {
	meta, ok := c.info[tier]
	if !ok {
		return TierInfo{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
	}
	return meta, nil
}

// Contains reports whether the chain includes the tier.
func (c *Config) Contains(tier Tier) bool {
	_, ok := c.tierIndex[tier]
	return ok
}
