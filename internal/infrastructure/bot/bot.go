// Package bot runs inbound updates through a single ordered queue and
// answers failures with notices to the acting user.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
)

// Router handles decoded updates. application.Workflows implements it.
type Router interface {
	Command(ctx context.Context, u messaging.Update) error
	Callback(ctx context.Context, u messaging.Update) (string, error)
	Text(ctx context.Context, u messaging.Update) error
	Photo(ctx context.Context, u messaging.Update) error
}

// Job is work submitted to the queue from outside the update stream.
type Job func(ctx context.Context)

const (
	// DefaultQueueSize bounds how many updates and jobs may wait for the worker.
	DefaultQueueSize = 64

	// DefaultNoticeTTL is how long a failure notice stays in the chat.
	DefaultNoticeTTL = 15 * time.Second
)

// Bot serializes every update and job onto one worker so that card state is
// never mutated concurrently.
type Bot struct {
	source  messaging.Source
	gateway messaging.Gateway
	router  Router
	logger  *slog.Logger
	jobs    chan Job

	// NoticeTTL is how long chat notices stay before they are deleted.
	// Zero keeps them.
	NoticeTTL time.Duration

	wg sync.WaitGroup
}

// New creates a bot. A nil logger uses slog.Default().
func New(source messaging.Source, gateway messaging.Gateway, router Router, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		source:  source,
		gateway: gateway,
		router:  router,
		logger:  logger,
		jobs:    make(chan Job, DefaultQueueSize),

		NoticeTTL: DefaultNoticeTTL,
	}
}

// Run consumes the update source until ctx is cancelled. Submitted jobs
// share the same queue as updates.
func (b *Bot) Run(ctx context.Context) error {
	workerCtx, stop := context.WithCancel(ctx)
	defer stop()

	b.wg.Add(1)
	go b.work(workerCtx)

	b.logger.Info("bot started")
	err := b.source.Run(ctx, func(ctx context.Context, u messaging.Update) {
		_ = b.Submit(ctx, func(ctx context.Context) { b.Handle(ctx, u) })
	})

	// Let the worker finish what the source already queued.
	if serr := b.Submit(ctx, func(context.Context) { stop() }); serr != nil {
		stop()
	}
	b.wg.Wait()
	b.logger.Info("bot stopped")
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	return nil
}

func (b *Bot) work(ctx context.Context) {
	defer b.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-b.jobs:
			b.run(ctx, job)
		}
	}
}

func (b *Bot) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("job panicked", "panic", r)
		}
	}()
	job(ctx)
}

// Submit queues job behind any pending updates. It blocks while the queue is full.
func (b *Bot) Submit(ctx context.Context, job Job) error {
	select {
	case b.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule submits job every interval until ctx is cancelled.
func (b *Bot) Schedule(ctx context.Context, every time.Duration, job Job) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := b.Submit(ctx, job); err != nil {
					return
				}
			}
		}
	}()
}

// Handle processes one update synchronously.
func (b *Bot) Handle(ctx context.Context, u messaging.Update) {
	switch u.Kind {
	case messaging.UpdateCallback:
		b.handleCallback(ctx, u)
	case messaging.UpdateCommand:
		b.report(ctx, u, b.router.Command(ctx, u))
	case messaging.UpdateText:
		b.report(ctx, u, b.router.Text(ctx, u))
	case messaging.UpdatePhoto:
		b.report(ctx, u, b.router.Photo(ctx, u))
	default:
		b.logger.Debug("ignoring update", "kind", u.Kind, "chat_id", u.ChatID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, u messaging.Update) {
	note, err := b.router.Callback(ctx, u)
	alert := false
	if err != nil {
		n := MapError(err)
		b.logFailure(u, n)
		note, alert = n.Text, n.Alert
	}
	if err := b.gateway.Acknowledge(ctx, u.CallbackID, note, alert); err != nil {
		b.logger.Warn("failed to acknowledge callback", "chat_id", u.ChatID, "error", err)
	}
}

// report answers a failed message update in the chat, addressed to the sender.
// Plain messages cannot be private, so the notice is removed after NoticeTTL.
func (b *Bot) report(ctx context.Context, u messaging.Update, err error) {
	if err == nil {
		return
	}
	n := MapError(err)
	b.logFailure(u, n)

	text := n.Text
	if u.From.Username != "" {
		text = fmt.Sprintf("@%s, %s", u.From.Username, n.Text)
	}
	id, err := b.gateway.SendMessage(ctx, u.ChatID, text, nil)
	if err != nil {
		b.logger.Warn("failed to send notice", "chat_id", u.ChatID, "error", err)
		return
	}
	if b.NoticeTTL > 0 {
		time.AfterFunc(b.NoticeTTL, func() {
			_ = b.Submit(ctx, func(ctx context.Context) { b.expire(ctx, u.ChatID, id) })
		})
	}
}

func (b *Bot) expire(ctx context.Context, chatID, messageID int64) {
	if err := b.gateway.DeleteMessage(ctx, chatID, messageID); err != nil {
		b.logger.Debug("failed to delete notice", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

func (b *Bot) logFailure(u messaging.Update, n *Notice) {
	attrs := []any{"kind", u.Kind, "chat_id", u.ChatID, "user_id", u.From.ID, "error", n.Err}
	if n.Internal {
		b.logger.Error("update failed", attrs...)
		return
	}
	b.logger.Info("update refused", attrs...)
}
