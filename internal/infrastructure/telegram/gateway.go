package telegram

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
)

// Gateway implements messaging.Gateway over the Bot API.
type Gateway struct {
	client *Client
}

var _ messaging.Gateway = (*Gateway)(nil)

// NewGateway creates a gateway using client.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

type inlineMarkup struct {
	InlineKeyboard [][]messaging.Button `json:"inline_keyboard"`
}

// markup renders kb for the wire. Edits always carry a markup so a nil
// keyboard clears the controls; sends omit it.
func markup(kb messaging.Keyboard, clear bool) *inlineMarkup {
	if len(kb) == 0 {
		if !clear {
			return nil
		}
		return &inlineMarkup{InlineKeyboard: [][]messaging.Button{}}
	}
	return &inlineMarkup{InlineKeyboard: kb}
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

type replyParameters struct {
	MessageID                int64 `json:"message_id"`
	AllowSendingWithoutReply bool  `json:"allow_sending_without_reply"`
}

type sendMessageParams struct {
	ChatID          int64            `json:"chat_id"`
	Text            string           `json:"text"`
	ReplyMarkup     *inlineMarkup    `json:"reply_markup,omitempty"`
	ReplyParameters *replyParameters `json:"reply_parameters,omitempty"`
}

type sendPhotoParams struct {
	ChatID      int64         `json:"chat_id"`
	Photo       string        `json:"photo"`
	Caption     string        `json:"caption,omitempty"`
	ReplyMarkup *inlineMarkup `json:"reply_markup,omitempty"`
}

type editTextParams struct {
	ChatID      int64         `json:"chat_id"`
	MessageID   int64         `json:"message_id"`
	Text        string        `json:"text"`
	ReplyMarkup *inlineMarkup `json:"reply_markup"`
}

type editCaptionParams struct {
	ChatID      int64         `json:"chat_id"`
	MessageID   int64         `json:"message_id"`
	Caption     string        `json:"caption"`
	ReplyMarkup *inlineMarkup `json:"reply_markup"`
}

type inputMediaPhoto struct {
	Type    string `json:"type"`
	Media   string `json:"media"`
	Caption string `json:"caption,omitempty"`
}

type editMediaParams struct {
	ChatID      int64           `json:"chat_id"`
	MessageID   int64           `json:"message_id"`
	Media       inputMediaPhoto `json:"media"`
	ReplyMarkup *inlineMarkup   `json:"reply_markup"`
}

type messageRef struct {
	ChatID              int64 `json:"chat_id"`
	MessageID           int64 `json:"message_id"`
	DisableNotification bool  `json:"disable_notification,omitempty"`
}

type answerCallbackParams struct {
	CallbackQueryID string `json:"callback_query_id"`
	Text            string `json:"text,omitempty"`
	ShowAlert       bool   `json:"show_alert,omitempty"`
}

func (g *Gateway) send(ctx context.Context, method string, params any) (int64, error) {
	var msg sentMessage
	if err := g.client.Call(ctx, method, params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// edit runs an edit call, treating an unchanged message as success.
func (g *Gateway) edit(ctx context.Context, method string, params any) error {
	err := g.client.Call(ctx, method, params, nil)
	if errors.Is(err, messaging.ErrNotModified) {
		return nil
	}
	return err
}

func (g *Gateway) SendMessage(ctx context.Context, chatID int64, text string, kb messaging.Keyboard) (int64, error) {
	return g.send(ctx, "sendMessage", sendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup(kb, false),
	})
}

func (g *Gateway) SendPhotoMessage(ctx context.Context, chatID int64, photoID, caption string, kb messaging.Keyboard) (int64, error) {
	return g.send(ctx, "sendPhoto", sendPhotoParams{
		ChatID:      chatID,
		Photo:       photoID,
		Caption:     caption,
		ReplyMarkup: markup(kb, false),
	})
}

func (g *Gateway) Reply(ctx context.Context, chatID, replyTo int64, text string) (int64, error) {
	return g.send(ctx, "sendMessage", sendMessageParams{
		ChatID: chatID,
		Text:   text,
		ReplyParameters: &replyParameters{
			MessageID:                replyTo,
			AllowSendingWithoutReply: true,
		},
	})
}

func (g *Gateway) EditMessageText(ctx context.Context, chatID, messageID int64, text string, kb messaging.Keyboard) error {
	return g.edit(ctx, "editMessageText", editTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		ReplyMarkup: markup(kb, true),
	})
}

func (g *Gateway) EditMessageCaption(ctx context.Context, chatID, messageID int64, caption string, kb messaging.Keyboard) error {
	return g.edit(ctx, "editMessageCaption", editCaptionParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Caption:     caption,
		ReplyMarkup: markup(kb, true),
	})
}

func (g *Gateway) EditMessagePhoto(ctx context.Context, chatID, messageID int64, photoID, caption string, kb messaging.Keyboard) error {
	return g.edit(ctx, "editMessageMedia", editMediaParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Media:       inputMediaPhoto{Type: "photo", Media: photoID, Caption: caption},
		ReplyMarkup: markup(kb, true),
	})
}

// DeleteMessage removes a message. A message that is already gone is not an error.
func (g *Gateway) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	err := g.client.Call(ctx, "deleteMessage", messageRef{ChatID: chatID, MessageID: messageID}, nil)
	if errors.Is(err, messaging.ErrMessageGone) {
		return nil
	}
	return err
}

func (g *Gateway) PinMessage(ctx context.Context, chatID, messageID int64) error {
	return g.client.Call(ctx, "pinChatMessage", messageRef{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	}, nil)
}

func (g *Gateway) Acknowledge(ctx context.Context, callbackID, note string, alert bool) error {
	return g.client.Call(ctx, "answerCallbackQuery", answerCallbackParams{
		CallbackQueryID: callbackID,
		Text:            note,
		ShowAlert:       alert,
	}, nil)
}
