// Package wiring builds the running bot from configuration.
package wiring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixgeelhaar/cardflow/internal/infrastructure/bot"
	"github.com/felixgeelhaar/cardflow/internal/infrastructure/config"
	"github.com/felixgeelhaar/cardflow/internal/infrastructure/feed"
	"github.com/felixgeelhaar/cardflow/internal/infrastructure/telegram"
	"github.com/felixgeelhaar/cardflow/internal/infrastructure/watch"
	"github.com/felixgeelhaar/cardflow/pkg/application"
	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/storage"
)

var _ bot.Router = (*application.Workflows)(nil)

// Services exposes the bot's components wired together.
type Services struct {
	Config     config.Config
	Logger     *slog.Logger
	Items      *storage.ItemRegistry
	Projects   *storage.ProjectDirectory
	Dispatcher *events.Dispatcher
	Feed       *feed.Hub
	Gateway    messaging.Gateway
	Source     messaging.Source
	Workflows  *application.Workflows
	Bot        *bot.Bot
}

// Option overrides a component before the graph is assembled.
type Option func(*Services)

// WithGateway replaces the Telegram gateway.
func WithGateway(gw messaging.Gateway) Option {
	return func(s *Services) { s.Gateway = gw }
}

// WithSource replaces the Telegram long-poll source.
func WithSource(src messaging.Source) Option {
	return func(s *Services) { s.Source = src }
}

// BuildServices constructs the service graph. Without options the gateway
// and source talk to the Telegram Bot API.
func BuildServices(cfg config.Config, logger *slog.Logger, opts ...Option) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Services{
		Config:     cfg,
		Logger:     logger,
		Items:      storage.NewItemRegistry(),
		Projects:   storage.NewProjectDirectory(),
		Dispatcher: events.NewDispatcher(),
		Feed:       feed.NewHub(logger.With("component", "feed")),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.Gateway == nil || s.Source == nil {
		client := telegram.NewClient(telegram.Config{
			Token:       cfg.Telegram.Token,
			BaseURL:     cfg.Telegram.APIURL,
			MaxAttempts: cfg.Gateway.MaxAttempts,
			RetryDelay:  cfg.Gateway.RetryDelay,
			Timeout:     cfg.Gateway.Timeout,
			PollTimeout: cfg.Telegram.PollTimeout,
		}, logger.With("component", "telegram"))
		if s.Gateway == nil {
			s.Gateway = telegram.NewGateway(client)
		}
		if s.Source == nil {
			s.Source = telegram.NewPoller(client, logger.With("component", "poller"))
		}
	}

	s.Dispatcher.RegisterWildcard("log", events.NewLoggingHandler(logger, slog.LevelInfo).Handle)
	if cfg.Feed.Addr != "" {
		s.Dispatcher.RegisterWildcard("feed", s.Feed.Handle)
	}

	if cfg.RosterFile != "" {
		entries, err := storage.LoadRoster(cfg.RosterFile)
		if err != nil {
			return nil, fmt.Errorf("load roster: %w", err)
		}
		seeded := s.Projects.Merge(entries, time.Now())
		logger.Info("roster loaded", "path", cfg.RosterFile, "projects", len(seeded))
	}

	s.Workflows = application.NewWorkflows(&application.Env{
		Gateway:  s.Gateway,
		Items:    s.Items,
		Projects: s.Projects,
		Sessions: application.NewSessionStore(cfg.SessionTTL),
		Events:   s.Dispatcher,
		Logger:   logger,
		Location: loc,
	})
	s.Bot = bot.New(s.Source, s.Gateway, s.Workflows, logger.With("component", "bot"))
	return s, nil
}

// Run serves the bot until ctx is cancelled, together with the session
// sweeper, the roster watcher and the event feed when configured.
func (s *Services) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.Config.SweepInterval > 0 {
		s.Bot.Schedule(ctx, s.Config.SweepInterval, func(ctx context.Context) {
			if n := s.Workflows.Env().SweepSessions(ctx); n > 0 {
				s.Logger.Debug("expired prompt sessions removed", "count", n)
			}
		})
	}

	if s.Config.RosterFile != "" {
		if err := s.Bot.Submit(ctx, s.publishAll); err != nil {
			return err
		}
		w, err := watch.NewFileWatcher(s.Config.RosterFile, 0, s.ReloadRoster, s.Logger.With("component", "watch"))
		if err != nil {
			return err
		}
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.Logger.Error("roster watcher stopped", "error", err)
			}
		}()
	}

	if s.Config.Feed.Addr != "" {
		srv := feed.NewServer(s.Config.Feed.Addr, s.Feed)
		go func() {
			s.Logger.Info("feed listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Logger.Error("feed server failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return s.Bot.Run(ctx)
}

// ReloadRoster re-reads the roster file and applies it on the bot queue.
// An invalid file is logged and the current rosters are kept.
func (s *Services) ReloadRoster(ctx context.Context) {
	entries, err := storage.LoadRoster(s.Config.RosterFile)
	if err != nil {
		s.Logger.Warn("roster reload rejected", "path", s.Config.RosterFile, "error", err)
		return
	}
	err = s.Bot.Submit(ctx, func(ctx context.Context) {
		changed := s.Projects.Merge(entries, time.Now())
		s.Logger.Info("roster reloaded", "path", s.Config.RosterFile, "changed", len(changed))
		s.publish(ctx, changed)
	})
	if err != nil {
		s.Logger.Debug("roster reload dropped", "error", err)
	}
}

func (s *Services) publishAll(ctx context.Context) {
	s.publish(ctx, s.Projects.ChatIDs())
}

func (s *Services) publish(ctx context.Context, chats []int64) {
	for _, chatID := range chats {
		if err := s.Workflows.Projects.Publish(ctx, chatID); err != nil {
			s.Logger.Warn("failed to publish project card", "chat_id", chatID, "error", err)
		}
	}
}
