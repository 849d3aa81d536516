// Package application implements the bot's use cases on top of the domain:
// card lifecycle transitions, the reject/spawn flow, task and project wizards.
package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
	"github.com/felixgeelhaar/cardflow/pkg/storage"
)

// ErrNoSession is returned when input arrives for a prompt that is not open.
var ErrNoSession = errors.New("no active prompt")

// Actor is the user behind an update.
type Actor struct {
	UserID int64
	Handle team.Handle
}

// ActorFrom maps a platform user to an actor. Users without a username get
// team.UnknownHandle, which never matches an assignment.
func ActorFrom(u messaging.User) Actor {
	return Actor{UserID: u.ID, Handle: team.NormalizeHandle(u.Username)}
}

// Env bundles the collaborators shared by every service.
type Env struct {
	Gateway  messaging.Gateway
	Items    *storage.ItemRegistry
	Projects project.Directory
	Sessions *SessionStore
	Events   events.Publisher
	Logger   *slog.Logger
	Location *time.Location
	Now      func() time.Time
}

func (e *Env) init() {
	if e.Logger == nil {
		e.Logger = slog.Default()
	}
	if e.Location == nil {
		e.Location = time.Local
	}
	if e.Now == nil {
		e.Now = time.Now
	}
	if e.Events == nil {
		e.Events = events.Discard{}
	}
	if e.Sessions == nil {
		e.Sessions = NewSessionStore(DefaultSessionTTL)
	}
}

func (e *Env) now() time.Time {
	return e.Now().In(e.Location)
}

func (e *Env) publish(ctx context.Context, ev *events.Event) {
	if err := e.Events.Publish(ctx, ev); err != nil {
		e.Logger.Warn("event handler failed", "event", ev.Type, "error", err)
	}
}

func (e *Env) itemEvent(eventType string, a Actor, w *workitem.WorkItem) *events.Event {
	ev := events.New(eventType, w.ChatID, a.Handle.String(), e.now())
	ev.ItemID = w.ID()
	ev.Kind = string(w.Kind)
	ev.To = string(w.Stage)
	return ev
}

// project returns the chat's project or nil.
func (e *Env) project(chatID int64) *project.Project {
	p, ok := e.Projects.Get(chatID)
	if !ok {
		return nil
	}
	return p
}

// roles resolves the actor against a card and its chat's project.
func (e *Env) roles(a Actor, w *workitem.WorkItem) (team.Roles, team.Handle) {
	p := e.project(w.ChatID)
	if p == nil {
		return team.Resolve(a.Handle, nil, &w.Assignment), team.UnknownHandle
	}
	return team.Resolve(a.Handle, p, &w.Assignment), p.Creator
}

func (e *Env) startSession(ctx context.Context, chatID int64, a Actor, flow Flow, step Step) *Session {
	sess, replaced := e.Sessions.Start(SessionKey{ChatID: chatID, UserID: a.UserID}, flow, step, a.Handle, e.now())
	if replaced != nil {
		e.clearPrompts(ctx, replaced)
	}
	return sess
}

func (e *Env) session(chatID int64, a Actor, flow Flow) (*Session, error) {
	sess, ok := e.Sessions.Get(SessionKey{ChatID: chatID, UserID: a.UserID}, e.now())
	if !ok || sess.Flow != flow {
		return nil, ErrNoSession
	}
	return sess, nil
}

func (e *Env) finish(ctx context.Context, s *Session) {
	e.Sessions.Finish(s.Key)
	e.clearPrompts(ctx, s)
}

// prompt sends a question that is deleted once the session moves on.
func (e *Env) prompt(ctx context.Context, s *Session, text string, kb messaging.Keyboard) error {
	id, err := e.Gateway.SendMessage(ctx, s.Key.ChatID, text, kb)
	if err != nil {
		return &workitem.GatewayError{Op: "send prompt", Err: err}
	}
	s.Prompts = append(s.Prompts, id)
	return nil
}

func (e *Env) clearPrompts(ctx context.Context, s *Session) {
	for _, id := range s.Prompts {
		e.discard(ctx, s.Key.ChatID, id)
	}
	s.Prompts = nil
}

// discard deletes a message and only logs failures.
func (e *Env) discard(ctx context.Context, chatID, messageID int64) {
	if messageID == 0 {
		return
	}
	if err := e.Gateway.DeleteMessage(ctx, chatID, messageID); err != nil {
		e.Logger.Debug("failed to delete message", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}

// SweepSessions closes expired prompts and deletes their messages.
func (e *Env) SweepSessions(ctx context.Context) int {
	expired := e.Sessions.Sweep(e.now())
	for _, s := range expired {
		e.clearPrompts(ctx, s)
		e.Logger.Debug("session expired", "session_id", s.ID, "flow", s.Flow, "chat_id", s.Key.ChatID)
	}
	return len(expired)
}

func creatorOnly(op string) error {
	return &workitem.AuthorizationError{Action: workitem.Action(op), Hint: team.PermitCreator.Hint()}
}
