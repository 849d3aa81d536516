package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
)

type wireUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type wireChat struct {
	ID int64 `json:"id"`
}

type wirePhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type wireMessage struct {
	MessageID int64           `json:"message_id"`
	From      *wireUser       `json:"from"`
	Chat      wireChat        `json:"chat"`
	Text      string          `json:"text"`
	Caption   string          `json:"caption"`
	Photo     []wirePhotoSize `json:"photo"`
}

type wireCallback struct {
	ID      string       `json:"id"`
	From    wireUser     `json:"from"`
	Message *wireMessage `json:"message"`
	Data    string       `json:"data"`
}

type wireUpdate struct {
	UpdateID      int64         `json:"update_id"`
	Message       *wireMessage  `json:"message"`
	CallbackQuery *wireCallback `json:"callback_query"`
}

type getUpdatesParams struct {
	Offset         int64    `json:"offset,omitempty"`
	Timeout        int      `json:"timeout"`
	AllowedUpdates []string `json:"allowed_updates"`
}

// decode converts a wire update. ok is false for updates the bot ignores.
func decode(w wireUpdate) (messaging.Update, bool) {
	if cb := w.CallbackQuery; cb != nil {
		if cb.Message == nil {
			return messaging.Update{}, false
		}
		return messaging.Update{
			Kind:       messaging.UpdateCallback,
			ChatID:     cb.Message.Chat.ID,
			MessageID:  cb.Message.MessageID,
			From:       messaging.User{ID: cb.From.ID, Username: cb.From.Username},
			CallbackID: cb.ID,
			Data:       cb.Data,
		}, true
	}

	m := w.Message
	if m == nil || m.From == nil {
		return messaging.Update{}, false
	}
	u := messaging.Update{
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		From:      messaging.User{ID: m.From.ID, Username: m.From.Username},
	}
	switch {
	case len(m.Photo) > 0:
		u.Kind = messaging.UpdatePhoto
		u.PhotoID = largest(m.Photo).FileID
		u.Text = m.Caption
	case m.Text != "":
		if name, args, ok := messaging.ParseCommand(m.Text); ok {
			u.Kind = messaging.UpdateCommand
			u.Command = name
			u.Args = args
		} else {
			u.Kind = messaging.UpdateText
			u.Text = m.Text
		}
	default:
		return messaging.Update{}, false
	}
	return u, true
}

func largest(sizes []wirePhotoSize) wirePhotoSize {
	best := sizes[0]
	for _, s := range sizes[1:] {
		if s.Width*s.Height > best.Width*best.Height {
			best = s
		}
	}
	return best
}

// Poller implements messaging.Source with getUpdates long polling.
type Poller struct {
	client  *Client
	logger  *slog.Logger
	backoff time.Duration
	offset  int64
}

var _ messaging.Source = (*Poller)(nil)

// NewPoller creates a long-polling update source.
func NewPoller(client *Client, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{client: client, logger: logger, backoff: time.Second}
}

// Run polls until ctx is cancelled, handing each decoded update to handle in order.
func (p *Poller) Run(ctx context.Context, handle messaging.Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		updates, err := p.poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Code == 401 {
				return err
			}
			p.logger.Warn("getUpdates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}
		for _, w := range updates {
			p.offset = w.UpdateID + 1
			if u, ok := decode(w); ok {
				handle(ctx, u)
			}
		}
	}
}

func (p *Poller) poll(ctx context.Context) ([]wireUpdate, error) {
	wait := p.client.cfg.PollTimeout
	params := getUpdatesParams{
		Offset:         p.offset,
		Timeout:        int(wait / time.Second),
		AllowedUpdates: []string{"message", "callback_query"},
	}
	var updates []wireUpdate
	err := p.client.call(ctx, wait+p.client.cfg.Timeout, "getUpdates", params, &updates)
	return updates, err
}
