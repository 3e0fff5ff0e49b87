package cascade

import "errors"

// Sentinel errors for the cascade engine. The first three indicate an
// internally inconsistent operator policy and are fatal at startup; they
// must never surface per-conversation. ErrEscalationExhausted is a routine,
// recoverable denial: callers continue at the current tier.
// ErrContextNotInitialized is a caller sequencing bug (escalate before any
// initial tier selection).
var (
	ErrInvalidConfig         = errors.New("invalid cascade config")
	ErrUnknownTier           = errors.New("unknown tier")
	ErrNoTierForLevel        = errors.New("no tier mapped for complexity level")
	ErrEscalationExhausted   = errors.New("escalation exhausted")
	ErrContextNotInitialized = errors.New("cascade context not initialized")
)
