// Package events defines domain events emitted when cards and projects change.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeItemCreated      = "item.created"
	TypeItemTransitioned = "item.transitioned"
	TypeItemRejected     = "item.rejected"
	TypeItemEdited       = "item.edited"
	TypeItemRemoved      = "item.removed"
	TypeItemCommented    = "item.commented"
	TypeProjectCreated   = "project.created"
	TypeProjectUpdated   = "project.updated"
	TypeProjectDeleted   = "project.deleted"
)

// Event is a single domain change. Item fields are empty for project events.
type Event struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	ChatID    int64             `json:"chat_id"`
	ItemID    string            `json:"item_id,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	From      string            `json:"from,omitempty"`
	To        string            `json:"to,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Text      string            `json:"text,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New creates an event with a fresh ID.
func New(eventType string, chatID int64, actor string, at time.Time) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		ChatID:    chatID,
		Actor:     actor,
		Timestamp: at,
	}
}

// IsItemEvent reports whether the event concerns a work item.
func (e *Event) IsItemEvent() bool {
	return e.ItemID != ""
}
