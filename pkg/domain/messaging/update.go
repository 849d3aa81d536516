package messaging

import (
	"context"
	"strings"
)

// UpdateKind classifies inbound platform events.
type UpdateKind string

const (
	UpdateCommand  UpdateKind = "command"
	UpdateText     UpdateKind = "text"
	UpdatePhoto    UpdateKind = "photo"
	UpdateCallback UpdateKind = "callback"
)

// User is the sender of an update.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// Update is one inbound event, already decoded from the platform's wire format.
type Update struct {
	Kind      UpdateKind `json:"kind"`
	ChatID    int64      `json:"chat_id"`
	MessageID int64      `json:"message_id"`
	From      User       `json:"from"`

	// Command is set for UpdateCommand without the leading slash or @bot suffix.
	Command string `json:"command,omitempty"`
	Args    string `json:"args,omitempty"`

	Text    string `json:"text,omitempty"`
	PhotoID string `json:"photo_id,omitempty"`

	// CallbackID and Data are set for UpdateCallback; MessageID is then the
	// message carrying the pressed button.
	CallbackID string `json:"callback_id,omitempty"`
	Data       string `json:"data,omitempty"`
}

// ParseCommand splits "/addTask@bot some args" into ("addTask", "some args").
// ok is false when text is not a command.
func ParseCommand(text string) (name, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	name, _, _ = strings.Cut(head, "@")
	if name == "" {
		return "", "", false
	}
	return name, strings.TrimSpace(rest), true
}

// Handler processes one update.
type Handler func(ctx context.Context, u Update)

// Source delivers updates to a handler one at a time until ctx is done.
type Source interface {
	Run(ctx context.Context, handle Handler) error
}
