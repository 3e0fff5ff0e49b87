package api

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ShayCichocki/rill/internal/cascade"
)

// startAt returns a context already routed to the default policy's lowest
// tier for the given level.
func startAt(t *testing.T, policy *cascade.Config, level cascade.Level) *cascade.Context {
	t.Helper()
	cctx := cascade.NewContext()
	if _, err := cascade.NewRouter().SelectInitialTier(
		cascade.Complexity{Level: level}, policy, cctx); err != nil {
		t.Fatalf("SelectInitialTier: %v", err)
	}
	return cctx
}

func TestEscalator_Grant(t *testing.T) {
	policy := cascade.DefaultConfig()
	esc := NewEscalator(policy)
	cctx := startAt(t, policy, cascade.LevelLow)

	input := json.RawMessage(`{"reason": "compile errors persist after two attempts"}`)
	result, outcome, err := esc.Apply(cctx, input)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if !outcome.Granted {
		t.Fatal("Expected escalation to be granted")
	}
	if outcome.Tier != cascade.TierStandard {
		t.Errorf("Tier = %q, want %q", outcome.Tier, cascade.TierStandard)
	}
	if result.IsError {
		t.Error("Granted escalation should not be an error result")
	}
	if !strings.Contains(result.Content, "granted") {
		t.Errorf("Result = %q, should say the escalation was granted", result.Content)
	}

	current, _ := cctx.CurrentTier()
	if current != cascade.TierStandard {
		t.Errorf("Context tier = %q, want %q", current, cascade.TierStandard)
	}
}

func TestEscalator_DenialIsNotAToolError(t *testing.T) {
	policy := cascade.DefaultConfig()
	esc := NewEscalator(policy)
	cctx := startAt(t, policy, cascade.LevelLow)

	input := json.RawMessage(`{"reason": "still stuck"}`)
	for i := 0; i < policy.MaxEscalations(); i++ {
		if _, outcome, err := esc.Apply(cctx, input); err != nil || !outcome.Granted {
			t.Fatalf("escalation %d should be granted (err=%v)", i+1, err)
		}
	}

	result, outcome, err := esc.Apply(cctx, input)
	if err != nil {
		t.Fatalf("Apply after cap: %v", err)
	}
	if outcome.Granted {
		t.Fatal("Escalation past the cap must be denied")
	}
	if result.IsError {
		t.Error("Denial goes back to the model as a normal tool result")
	}
	if !strings.Contains(result.Content, "denied") {
		t.Errorf("Result = %q, should say the escalation was denied", result.Content)
	}
	if !strings.Contains(result.Content, "current tier") {
		t.Errorf("Result = %q, should tell the model to continue at the current tier", result.Content)
	}

	current, _ := cctx.CurrentTier()
	if current != outcome.Tier {
		t.Errorf("Denied escalation must not change the tier: context %q, outcome %q", current, outcome.Tier)
	}
}

func TestEscalator_UninitializedContext(t *testing.T) {
	esc := NewEscalator(cascade.DefaultConfig())

	_, _, err := esc.Apply(cascade.NewContext(), json.RawMessage(`{"reason": "x"}`))
	if err == nil {
		t.Fatal("Expected error for escalation before tier selection")
	}
}

func TestEscalator_InvalidInput(t *testing.T) {
	policy := cascade.DefaultConfig()
	esc := NewEscalator(policy)
	cctx := startAt(t, policy, cascade.LevelLow)

	result, outcome, err := esc.Apply(cctx, json.RawMessage(`{not json`))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !result.IsError {
		t.Error("Malformed input should produce an error tool result")
	}
	if outcome.Granted {
		t.Error("Malformed input must not grant an escalation")
	}
}

func TestEscalator_DefaultReason(t *testing.T) {
	policy := cascade.DefaultConfig()
	esc := NewEscalator(policy)
	cctx := startAt(t, policy, cascade.LevelLow)

	if _, outcome, err := esc.Apply(cctx, json.RawMessage(`{}`)); err != nil {
		t.Fatalf("Apply: %v", err)
	} else if !outcome.Granted {
		t.Fatal("Expected escalation to be granted")
	} else if outcome.Reason == "" {
		t.Error("A missing reason should be replaced with a default")
	}
}
