package events

import (
	"context"
	"log/slog"
)

// LoggingHandler writes every event to a structured logger.
type LoggingHandler struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingHandler creates a LoggingHandler logging at level.
func NewLoggingHandler(logger *slog.Logger, level slog.Level) *LoggingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingHandler{logger: logger, level: level}
}

// Handle logs the event. It never fails.
func (h *LoggingHandler) Handle(ctx context.Context, event *Event) error {
	attrs := []any{
		"event_id", event.ID,
		"chat_id", event.ChatID,
		"actor", event.Actor,
	}
	if event.IsItemEvent() {
		attrs = append(attrs, "item", event.ItemID, "kind", event.Kind)
	}
	if event.From != "" || event.To != "" {
		attrs = append(attrs, "from", event.From, "to", event.To)
	}
	h.logger.Log(ctx, h.level, event.Type, attrs...)
	return nil
}

// Recorder keeps published events in memory. Tests use it as a Publisher.
type Recorder struct {
	Events []*Event
}

func (r *Recorder) Publish(_ context.Context, event *Event) error {
	r.Events = append(r.Events, event)
	return nil
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	out := make([]string, 0, len(r.Events))
	for _, e := range r.Events {
		out = append(out, e.Type)
	}
	return out
}
