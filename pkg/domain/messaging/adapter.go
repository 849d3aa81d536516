// Package messaging defines the chat platform port: outgoing card operations and inbound updates.
package messaging

import (
	"context"
	"errors"
)

var (
	// ErrNotModified is reported by platforms when an edit would not change the message.
	// Gateways swallow it; it is exported for adapters and fakes.
	ErrNotModified = errors.New("message is not modified")

	// ErrMessageGone indicates the target message no longer exists.
	ErrMessageGone = errors.New("message not found")
)

// Button is one inline control. Data is delivered back in a callback update.
type Button struct {
	Text string `json:"text"`
	Data string `json:"callback_data"`
}

// Keyboard is a grid of inline buttons. A nil keyboard removes existing controls.
type Keyboard [][]Button

// Row builds a single-row keyboard.
func Row(buttons ...Button) Keyboard {
	if len(buttons) == 0 {
		return nil
	}
	return Keyboard{buttons}
}

// Column builds a keyboard with one button per row.
func Column(buttons ...Button) Keyboard {
	var kb Keyboard
	for _, b := range buttons {
		kb = append(kb, []Button{b})
	}
	return kb
}

// Gateway sends, edits and deletes chat messages.
//
// Edits must swallow ErrNotModified. DeleteMessage must tolerate a message
// that is already gone. Acknowledge is shown to the acting user only.
type Gateway interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int64, error)
	SendPhotoMessage(ctx context.Context, chatID int64, photoID, caption string, kb Keyboard) (int64, error)
	Reply(ctx context.Context, chatID, replyTo int64, text string) (int64, error)
	EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb Keyboard) error
	EditMessageCaption(ctx context.Context, chatID, messageID int64, caption string, kb Keyboard) error
	EditMessagePhoto(ctx context.Context, chatID, messageID int64, photoID, caption string, kb Keyboard) error
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	PinMessage(ctx context.Context, chatID, messageID int64) error
	Acknowledge(ctx context.Context, callbackID, note string, alert bool) error
}

// UpdateCard edits a card in place, choosing caption or text by the card's form.
func UpdateCard(ctx context.Context, gw Gateway, chatID, messageID int64, hasPhoto bool, text string, kb Keyboard) error {
	if hasPhoto {
		return gw.EditMessageCaption(ctx, chatID, messageID, text, kb)
	}
	return gw.EditMessageText(ctx, chatID, messageID, text, kb)
}

// SendCard posts a new card as a photo with caption or as plain text.
func SendCard(ctx context.Context, gw Gateway, chatID int64, photoID, text string, kb Keyboard) (int64, error) {
	if photoID != "" {
		return gw.SendPhotoMessage(ctx, chatID, photoID, text, kb)
	}
	return gw.SendMessage(ctx, chatID, text, kb)
}
