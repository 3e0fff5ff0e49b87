package cascade

import (
	"sync"
	"time"
)

// EventKind distinguishes entries in a Context's history.
type EventKind string

const (
	// EventClassified records an initial tier selection for a new task.
	EventClassified EventKind = "classified"
	// EventEscalated records a successful escalation.
	EventEscalated EventKind = "escalated"
)

// Event is one entry in a conversation's cascade history. History exists
// for observability and debugging; routing never consults it beyond the
// current tier and escalation count.
type Event struct {
	Kind       EventKind
	Complexity *Complexity
	Reason     string
	FromTier   Tier
	ToTier     Tier
	Timestamp  time.Time
}

// Context is the per-conversation cascade state: the active tier, how many
// escalations the conversation has used, and the event history. One Context
// belongs to exactly one conversation and lives as long as it; it is never
// shared across conversations, and the Router is its sole writer.
//
// Conversations resumed from storage start with a fresh Context unless the
// caller explicitly reconstructs (tier, escalation count) from what it
// persisted.
type Context struct {
	mu              sync.Mutex
	currentTier     Tier
	initialized     bool
	escalationCount int
	history         []Event
}

// NewContext creates the cascade state for a new conversation: no tier
// selected yet, zero escalations.
func NewContext() *Context {
	return &Context{}
}

// CurrentTier returns the active tier and whether one has been selected.
func (c *Context) CurrentTier() (Tier, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentTier, c.initialized
}

// EscalationCount returns the number of escalations used so far.
func (c *Context) EscalationCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.escalationCount
}

// History returns a copy of the recorded events.
func (c *Context) History() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event{}, c.history...)
}

func (c *Context) setTier(tier Tier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTier = tier
	c.initialized = true
}

func (c *Context) bumpEscalations() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.escalationCount++
}

func (c *Context) record(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ev.Timestamp = time.Now()
	c.history = append(c.history, ev)
}
