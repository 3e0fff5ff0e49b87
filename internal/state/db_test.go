package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ShayCichocki/rill/internal/cascade"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestConversationLifecycle(t *testing.T) {
	db := openTestDB(t)

	conv, err := db.CreateConversation("fix the flaky test")
	if err != nil {
		t.Fatalf("CreateConversation() error = %v", err)
	}
	if conv.ID == "" {
		t.Fatal("conversation id is empty")
	}
	if conv.Status != ConversationActive {
		t.Errorf("status = %v, want active", conv.Status)
	}

	got, err := db.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.Title != "fix the flaky test" {
		t.Errorf("title = %q", got.Title)
	}

	if err := db.EndConversation(conv.ID, ConversationCompleted); err != nil {
		t.Fatalf("EndConversation() error = %v", err)
	}
	got, err = db.GetConversation(conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.Status != ConversationCompleted {
		t.Errorf("status = %v, want completed", got.Status)
	}
	if got.EndedAt == nil {
		t.Error("EndedAt not set")
	}
}

func TestGetConversation_Missing(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.GetConversation("does-not-exist"); err == nil {
		t.Error("GetConversation() on missing id should fail")
	}
}

func TestListConversations_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	first, err := db.CreateConversation("first")
	if err != nil {
		t.Fatal(err)
	}
	// started_at has sub-second precision; force distinct timestamps.
	time.Sleep(5 * time.Millisecond)
	second, err := db.CreateConversation("second")
	if err != nil {
		t.Fatal(err)
	}

	convs, err := db.ListConversations(10)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations, want 2", len(convs))
	}
	if convs[0].ID != second.ID || convs[1].ID != first.ID {
		t.Error("conversations not ordered newest first")
	}
}

func TestCascadeEvents_RoundTrip(t *testing.T) {
	db := openTestDB(t)

	conv, err := db.CreateConversation("escalating task")
	if err != nil {
		t.Fatal(err)
	}

	classified := cascade.Event{
		Kind:       cascade.EventClassified,
		Complexity: &cascade.Complexity{Level: cascade.LevelMedium},
		ToTier:     cascade.TierStandard,
		Timestamp:  time.Now(),
	}
	escalated := cascade.Event{
		Kind:      cascade.EventEscalated,
		Reason:    "needs multi-file refactor",
		FromTier:  cascade.TierStandard,
		ToTier:    cascade.TierAdvanced,
		Timestamp: time.Now(),
	}

	if err := db.RecordCascadeEvent(conv.ID, classified); err != nil {
		t.Fatalf("RecordCascadeEvent() error = %v", err)
	}
	if err := db.RecordCascadeEvent(conv.ID, escalated); err != nil {
		t.Fatalf("RecordCascadeEvent() error = %v", err)
	}

	events, err := db.CascadeEvents(conv.ID)
	if err != nil {
		t.Fatalf("CascadeEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != string(cascade.EventClassified) || events[0].Level != "medium" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Kind != string(cascade.EventEscalated) || events[1].Reason == "" {
		t.Errorf("second event = %+v", events[1])
	}
	if events[1].FromTier != "standard" || events[1].ToTier != "advanced" {
		t.Errorf("escalation tiers = %s -> %s", events[1].FromTier, events[1].ToTier)
	}
}
