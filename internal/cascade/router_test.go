package cascade

import (
	"errors"
	"testing"
)

func newTestConfig(t *testing.T, maxEscalations int) *Config {
	t.Helper()
	chain, levels, info := testChain()
	cfg, err := NewConfig(chain, levels, maxEscalations, info)
	if err != nil {
		t.Fatalf("NewConfig() error = %v", err)
	}
	return cfg
}

func complexityAt(level Level) Complexity {
	return Complexity{Level: level, Signals: Signals{Length: 50}}
}

// A short plain request maps to the cheapest tier.
func TestSelectInitialTier_LowToFast(t *testing.T) {
	cfg := newTestConfig(t, 2)
	ctx := NewContext()
	router := NewRouter()

	a := NewHeuristicAnalyzer()
	complexity := a.Analyze("List the files in cmd", nil)
	if complexity.Level != LevelLow {
		t.Fatalf("level = %v, want %v", complexity.Level, LevelLow)
	}

	tier, err := router.SelectInitialTier(complexity, cfg, ctx)
	if err != nil {
		t.Fatalf("SelectInitialTier() error = %v", err)
	}
	if tier != TierFast {
		t.Errorf("tier = %v, want %v", tier, TierFast)
	}
	if got, ok := ctx.CurrentTier(); !ok || got != TierFast {
		t.Errorf("context tier = (%v, %v), want (fast, true)", got, ok)
	}
	if len(ctx.History()) != 1 {
		t.Errorf("history length = %d, want 1", len(ctx.History()))
	}
}

// A critical task starts at the mapped top tier without consuming any
// escalation.
func TestSelectInitialTier_CriticalToFrontier(t *testing.T) {
	cfg := newTestConfig(t, 2)
	ctx := NewContext()
	router := NewRouter()

	tier, err := router.SelectInitialTier(complexityAt(LevelCritical), cfg, ctx)
	if err != nil {
		t.Fatalf("SelectInitialTier() error = %v", err)
	}
	if tier != TierFrontier {
		t.Errorf("tier = %v, want %v", tier, TierFrontier)
	}
	if ctx.EscalationCount() != 0 {
		t.Errorf("escalation count = %d, want 0", ctx.EscalationCount())
	}
}

func TestSelectInitialTier_DoesNotResetEscalationState(t *testing.T) {
	cfg := newTestConfig(t, 2)
	ctx := NewContext()
	router := NewRouter()

	if _, err := router.SelectInitialTier(complexityAt(LevelMedium), cfg, ctx); err != nil {
		t.Fatalf("SelectInitialTier() error = %v", err)
	}
	if _, err := router.Escalate("stuck", cfg, ctx); err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}

	// A later cheap task must not drop the tier below what escalation earned.
	tier, err := router.SelectInitialTier(complexityAt(LevelLow), cfg, ctx)
	if err != nil {
		t.Fatalf("SelectInitialTier() error = %v", err)
	}
	if tier != TierAdvanced {
		t.Errorf("tier = %v, want %v (escalated tier retained)", tier, TierAdvanced)
	}
	if ctx.EscalationCount() != 1 {
		t.Errorf("escalation count = %d, want 1", ctx.EscalationCount())
	}
}

func TestEscalate_AdvancesOneStep(t *testing.T) {
	cfg := newTestConfig(t, 2)
	ctx := NewContext()
	router := NewRouter()

	if _, err := router.SelectInitialTier(complexityAt(LevelMedium), cfg, ctx); err != nil {
		t.Fatalf("SelectInitialTier() error = %v", err)
	}

	tier, err := router.Escalate("needs multi-file refactor", cfg, ctx)
	if err != nil {
		t.Fatalf("Escalate() error = %v", err)
	}
	if tier != TierAdvanced {
		t.Errorf("tier = %v, want %v", tier, TierAdvanced)
	}
	if ctx.EscalationCount() != 1 {
		t.Errorf("escalation count = %d, want 1", ctx.EscalationCount())
	}

	events := ctx.History()
	last := events[len(events)-1]
	if last.Kind != EventEscalated || last.FromTier != TierStandard || last.ToTier != TierAdvanced {
		t.Errorf("last event = %+v, want escalated standard->advanced", last)
	}
	if last.Reason != "needs multi-file refactor" {
		t.Errorf("reason = %q", last.Reason)
	}
}

func TestEscalate_ExhaustedAtCap(t *testing.T) {
	cfg := newTestConfig(t, 2)
	ctx := NewContext()
	router := NewRouter()

	if _, err := router.SelectInitialTier(complexityAt(LevelMedium), cfg, ctx); err != nil {
		t.Fatalf("SelectInitialTier() error = %v", err)
	}

	// standard -> advanced -> frontier uses the full cap of 2.
	if _, err := router.Escalate("first", cfg, ctx); err != nil {
		t.Fatalf("first Escalate() error = %v", err)
	}
	tier, err := router.Escalate("second", cfg, ctx)
	if err != nil {
		t.Fatalf("second Escalate() error = %v", err)
	}
	if tier != TierFrontier {
		t.Errorf("tier = %v, want %v", tier, TierFrontier)
	}
	if ctx.EscalationCount() != cfg.MaxEscalations() {
		t.Errorf("escalation count = %d, want %d", ctx.EscalationCount(), cfg.MaxEscalations())
	}

	_, err = router.Escalate("third", cfg, ctx)
	if !errors.Is(err, ErrEscalationExhausted) {
		t.Fatalf("third Escalate() error = %v, want ErrEscalationExhausted", err)
	}
	if got, _ := ctx.CurrentTier(); got != TierFrontier {
		t.Errorf("tier after denial = %v, want %v", got, TierFrontier)
	}
	if ctx.EscalationCount() != 2 {
		t.Errorf("escalation count after denial = %d, want 2", ctx.EscalationCount())
	}
}

// A conversation already at the top tier is denied even with escalations
// left; same recoverable error class, different detail.
func TestEscalate_DeniedAtTopTier(t *testing.T) {
	cfg := newTestConfig(t, 2)
	ctx := NewContext()
	router := NewRouter()

	if _, err := router.SelectInitialTier(complexityAt(LevelCritical), cfg, ctx); err != nil {
		t.Fatalf("SelectInitialTier() error = %v", err)
	}

	_, err := router.Escalate("more please", cfg, ctx)
	if !errors.Is(err, ErrEscalationExhausted) {
		t.Fatalf("Escalate() error = %v, want ErrEscalationExhausted", err)
	}
	if ctx.EscalationCount() != 0 {
		t.Errorf("escalation count = %d, want 0 (denial consumes nothing)", ctx.EscalationCount())
	}
	if got, _ := ctx.CurrentTier(); got != TierFrontier {
		t.Errorf("tier = %v, want %v", got, TierFrontier)
	}
}

func TestEscalate_ContextNotInitialized(t *testing.T) {
	cfg := newTestConfig(t, 2)
	router := NewRouter()

	_, err := router.Escalate("too early", cfg, NewContext())
	if !errors.Is(err, ErrContextNotInitialized) {
		t.Errorf("Escalate() error = %v, want ErrContextNotInitialized", err)
	}
}

// The tier sequence of a context never decreases, never skips a chain step,
// and the escalation count never exceeds the cap.
func TestContext_TierMonotoneAndBounded(t *testing.T) {
	cfg := newTestConfig(t, 3)
	ctx := NewContext()
	router := NewRouter()

	if _, err := router.SelectInitialTier(complexityAt(LevelLow), cfg, ctx); err != nil {
		t.Fatalf("SelectInitialTier() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		before, _ := ctx.CurrentTier()
		tier, err := router.Escalate("push", cfg, ctx)
		if err != nil {
			if !errors.Is(err, ErrEscalationExhausted) {
				t.Fatalf("Escalate() error = %v", err)
			}
			continue
		}
		next, ok := cfg.NextTier(before)
		if !ok || tier != next {
			t.Errorf("escalation skipped a step: %v -> %v", before, tier)
		}
	}

	if ctx.EscalationCount() > cfg.MaxEscalations() {
		t.Errorf("escalation count %d exceeds cap %d", ctx.EscalationCount(), cfg.MaxEscalations())
	}
	if got, _ := ctx.CurrentTier(); !cfg.Contains(got) {
		t.Errorf("tier %v not in configured chain", got)
	}

	// Replay the history: tiers never move backwards.
	prevIdx := -1
	for _, ev := range ctx.History() {
		idx := -1
		for i, tier := range cfg.Chain() {
			if tier == ev.ToTier {
				idx = i
			}
		}
		if idx < prevIdx {
			t.Errorf("history tier regressed at %+v", ev)
		}
		prevIdx = idx
	}
}
