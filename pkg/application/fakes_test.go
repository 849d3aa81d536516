package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/application"
	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
	"github.com/felixgeelhaar/cardflow/pkg/storage"
)

// message is what the fake chat currently shows for one message ID.
type message struct {
	ChatID   int64
	Text     string
	PhotoID  string
	Keyboard messaging.Keyboard
	ReplyTo  int64
	Pinned   bool
}

// fakeGateway records every platform call and keeps the chat's current state.
type fakeGateway struct {
	nextID   int64
	messages map[int64]*message
	sent     []int64
	edits    int
	deleted  []int64

	SendErr error
	EditErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 1000, messages: make(map[int64]*message)}
}

func (g *fakeGateway) send(m *message) (int64, error) {
	if g.SendErr != nil {
		return 0, g.SendErr
	}
	g.nextID++
	g.messages[g.nextID] = m
	g.sent = append(g.sent, g.nextID)
	return g.nextID, nil
}

func (g *fakeGateway) SendMessage(_ context.Context, chatID int64, text string, kb messaging.Keyboard) (int64, error) {
	return g.send(&message{ChatID: chatID, Text: text, Keyboard: kb})
}

func (g *fakeGateway) SendPhotoMessage(_ context.Context, chatID int64, photoID, caption string, kb messaging.Keyboard) (int64, error) {
	return g.send(&message{ChatID: chatID, Text: caption, PhotoID: photoID, Keyboard: kb})
}

func (g *fakeGateway) Reply(_ context.Context, chatID, replyTo int64, text string) (int64, error) {
	return g.send(&message{ChatID: chatID, Text: text, ReplyTo: replyTo})
}

func (g *fakeGateway) edit(messageID int64, apply func(m *message)) error {
	if g.EditErr != nil {
		return g.EditErr
	}
	m, ok := g.messages[messageID]
	if !ok {
		return messaging.ErrMessageGone
	}
	g.edits++
	apply(m)
	return nil
}

func (g *fakeGateway) EditMessageText(_ context.Context, _, messageID int64, text string, kb messaging.Keyboard) error {
	return g.edit(messageID, func(m *message) { m.Text, m.Keyboard = text, kb })
}

func (g *fakeGateway) EditMessageCaption(_ context.Context, _, messageID int64, caption string, kb messaging.Keyboard) error {
	return g.edit(messageID, func(m *message) { m.Text, m.Keyboard = caption, kb })
}

func (g *fakeGateway) EditMessagePhoto(_ context.Context, _, messageID int64, photoID, caption string, kb messaging.Keyboard) error {
	return g.edit(messageID, func(m *message) { m.PhotoID, m.Text, m.Keyboard = photoID, caption, kb })
}

func (g *fakeGateway) DeleteMessage(_ context.Context, _, messageID int64) error {
	delete(g.messages, messageID)
	g.deleted = append(g.deleted, messageID)
	return nil
}

func (g *fakeGateway) PinMessage(_ context.Context, _, messageID int64) error {
	if m, ok := g.messages[messageID]; ok {
		m.Pinned = true
	}
	return nil
}

func (g *fakeGateway) Acknowledge(context.Context, string, string, bool) error { return nil }

// last returns the most recently sent message that still exists.
func (g *fakeGateway) last(t *testing.T) (int64, *message) {
	t.Helper()
	for i := len(g.sent) - 1; i >= 0; i-- {
		if m, ok := g.messages[g.sent[i]]; ok {
			return g.sent[i], m
		}
	}
	t.Fatal("no message in chat")
	return 0, nil
}

var errPlatform = errors.New("platform down")

const chat int64 = -100

var (
	boss     = messaging.User{ID: 1, Username: "boss"}
	dev1     = messaging.User{ID: 2, Username: "dev1"}
	test1    = messaging.User{ID: 3, Username: "test1"}
	outsider = messaging.User{ID: 4, Username: "stranger"}
	noname   = messaging.User{ID: 5}
)

type harness struct {
	gw       *fakeGateway
	items    *storage.ItemRegistry
	projects *storage.ProjectDirectory
	events   *events.Recorder
	clock    time.Time
	app      *application.Workflows
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gw:       newFakeGateway(),
		items:    storage.NewItemRegistry(),
		projects: storage.NewProjectDirectory(),
		events:   &events.Recorder{},
		clock:    time.Date(2026, 3, 7, 9, 5, 0, 0, time.UTC),
	}
	h.app = application.NewWorkflows(&application.Env{
		Gateway:  h.gw,
		Items:    h.items,
		Projects: h.projects,
		Sessions: application.NewSessionStore(30 * time.Minute),
		Events:   h.events,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Location: time.UTC,
		Now:      func() time.Time { return h.clock },
	})
	return h
}

// withProject seeds a project whose card is already posted.
func (h *harness) withProject(t *testing.T, devs, testers []team.Handle) *project.Project {
	t.Helper()
	p := project.New(chat, "@boss", h.clock)
	p.Name = "Site"
	p.Developers = devs
	p.Testers = testers
	id, _ := h.gw.SendMessage(context.Background(), chat, "card", nil)
	p.CardMessageID = id
	h.projects.Save(p)
	return p
}

// occupyNextMessage registers an item on the message ID the gateway will hand
// out next, so the next card the bot posts cannot be registered.
func (h *harness) occupyNextMessage(t *testing.T) int64 {
	t.Helper()
	w := workitem.New(workitem.KindGlitch, 99, chat, "squatter", team.Assignment{}, h.clock)
	w.Card.MessageID = h.gw.nextID + 1
	if err := h.items.Append(w); err != nil {
		t.Fatal(err)
	}
	return w.Card.MessageID
}

func (h *harness) command(t *testing.T, from messaging.User, name string) error {
	t.Helper()
	return h.app.Command(context.Background(), messaging.Update{
		Kind: messaging.UpdateCommand, ChatID: chat, From: from, Command: name, MessageID: 1,
	})
}

func (h *harness) text(t *testing.T, from messaging.User, text string) error {
	t.Helper()
	return h.app.Text(context.Background(), messaging.Update{
		Kind: messaging.UpdateText, ChatID: chat, From: from, Text: text, MessageID: 2,
	})
}

func (h *harness) photo(t *testing.T, from messaging.User, photoID string) error {
	t.Helper()
	return h.app.Photo(context.Background(), messaging.Update{
		Kind: messaging.UpdatePhoto, ChatID: chat, From: from, PhotoID: photoID, MessageID: 3,
	})
}

func (h *harness) press(t *testing.T, from messaging.User, messageID int64, data string) (string, error) {
	t.Helper()
	return h.app.Callback(context.Background(), messaging.Update{
		Kind: messaging.UpdateCallback, ChatID: chat, From: from, MessageID: messageID, CallbackID: "cb", Data: data,
	})
}
