package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/rill/internal/cascade"
)

// ConversationStatus represents the status of a conversation.
type ConversationStatus string

const (
	ConversationActive    ConversationStatus = "active"
	ConversationCompleted ConversationStatus = "completed"
	ConversationFailed    ConversationStatus = "failed"
)

// Conversation is a stored conversation record.
type Conversation struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Status    ConversationStatus `json:"status"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   *time.Time         `json:"ended_at,omitempty"`
}

// CascadeEvent is a stored routing event: a classification or an
// escalation.
type CascadeEvent struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Kind           string    `json:"kind"`
	Level          string    `json:"level,omitempty"`
	FromTier       string    `json:"from_tier,omitempty"`
	ToTier         string    `json:"to_tier"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateConversation inserts a new conversation and returns it.
func (db *DB) CreateConversation(title string) (*Conversation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	conv := &Conversation{
		ID:        uuid.New().String(),
		Title:     title,
		Status:    ConversationActive,
		StartedAt: time.Now().UTC(),
	}

	_, err := db.conn.Exec(
		`INSERT INTO conversations (id, title, status, started_at) VALUES (?, ?, ?, ?)`,
		conv.ID, conv.Title, string(conv.Status), conv.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}
	return conv, nil
}

// GetConversation loads a conversation by id.
func (db *DB) GetConversation(id string) (*Conversation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(
		`SELECT id, title, status, started_at, ended_at FROM conversations WHERE id = ?`, id)

	conv := &Conversation{}
	var status string
	var endedAt sql.NullTime
	if err := row.Scan(&conv.ID, &conv.Title, &status, &conv.StartedAt, &endedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation %s not found", id)
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	conv.Status = ConversationStatus(status)
	if endedAt.Valid {
		conv.EndedAt = &endedAt.Time
	}
	return conv, nil
}

// ListConversations returns conversations newest first.
func (db *DB) ListConversations(limit int) ([]*Conversation, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(
		`SELECT id, title, status, started_at, ended_at FROM conversations
		 ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []*Conversation
	for rows.Next() {
		conv := &Conversation{}
		var status string
		var endedAt sql.NullTime
		if err := rows.Scan(&conv.ID, &conv.Title, &status, &conv.StartedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conv.Status = ConversationStatus(status)
		if endedAt.Valid {
			conv.EndedAt = &endedAt.Time
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// EndConversation marks a conversation finished with the given status.
func (db *DB) EndConversation(id string, status ConversationStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(
		`UPDATE conversations SET status = ?, ended_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}
	return nil
}

// RecordCascadeEvent stores one routing event from a conversation's
// cascade history.
func (db *DB) RecordCascadeEvent(conversationID string, ev cascade.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	level := ""
	if ev.Complexity != nil {
		level = ev.Complexity.Level.String()
	}

	_, err := db.conn.Exec(
		`INSERT INTO cascade_events (conversation_id, kind, level, from_tier, to_tier, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		conversationID, string(ev.Kind), level,
		ev.FromTier.String(), ev.ToTier.String(), ev.Reason, ev.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert cascade event: %w", err)
	}
	return nil
}

// CascadeEvents returns a conversation's routing events oldest first.
func (db *DB) CascadeEvents(conversationID string) ([]*CascadeEvent, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(
		`SELECT id, conversation_id, kind, level, from_tier, to_tier, reason, created_at
		 FROM cascade_events WHERE conversation_id = ? ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("query cascade events: %w", err)
	}
	defer rows.Close()

	var events []*CascadeEvent
	for rows.Next() {
		ev := &CascadeEvent{}
		if err := rows.Scan(&ev.ID, &ev.ConversationID, &ev.Kind, &ev.Level,
			&ev.FromTier, &ev.ToTier, &ev.Reason, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan cascade event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
