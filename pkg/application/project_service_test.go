package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/felixgeelhaar/cardflow/pkg/application"
	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
	"github.com/felixgeelhaar/cardflow/pkg/storage"
)

func projectData(action string) string {
	return application.Callback{Scope: application.ScopeProject, Action: action}.String()
}

func teamData(action string) string {
	return application.Callback{Scope: application.ScopeTeam, Action: action}.String()
}

func TestProjectWizard(t *testing.T) {
	h := newHarness(t)
	if err := h.command(t, boss, application.CommandNewProject); err != nil {
		t.Fatal(err)
	}
	p, ok := h.projects.Get(chat)
	if !ok {
		t.Fatal("project not stored")
	}
	card := h.gw.messages[p.CardMessageID]
	if !card.Pinned || !strings.Contains(card.Text, project.Unset) {
		t.Errorf("initial card = %+v", card)
	}

	if err := h.text(t, boss, "Site"); err != nil {
		t.Fatal(err)
	}
	if err := h.text(t, boss, "Landing page"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.press(t, boss, 0, application.ScopeSkip); err != nil {
		t.Fatal(err)
	}

	card = h.gw.messages[p.CardMessageID]
	for _, want := range []string{"Проект: Site", "Описание: Landing page", "Creator: @boss"} {
		if !strings.Contains(card.Text, want) {
			t.Errorf("card missing %q:\n%s", want, card.Text)
		}
	}
	if card.Keyboard == nil {
		t.Error("finished card has no controls")
	}
	if h.app.Env().Sessions.Len() != 0 {
		t.Error("wizard session left open")
	}
	if got := h.events.Types(); len(got) != 1 || got[0] != events.TypeProjectCreated {
		t.Errorf("events = %v", got)
	}
}

func TestProjectWizard_WithImage(t *testing.T) {
	h := newHarness(t)
	_ = h.command(t, boss, application.CommandNewProject)
	_ = h.text(t, boss, "Site")
	_ = h.text(t, boss, "Landing")
	if err := h.photo(t, boss, "img-1"); err != nil {
		t.Fatal(err)
	}
	p, _ := h.projects.Get(chat)
	if p.ImageID != "img-1" || h.gw.messages[p.CardMessageID].PhotoID != "img-1" {
		t.Errorf("image not applied: %+v", p)
	}

	h.gw.edits = 0
	if err := h.app.Projects.RefreshCard(t.Context(), chat); err != nil {
		t.Fatal(err)
	}
	if h.gw.edits != 0 {
		t.Error("unchanged card was edited")
	}
}

func TestProjectWizard_RejectsSecondProject(t *testing.T) {
	h := newHarness(t)
	h.withProject(t, nil, nil)
	if err := h.command(t, outsider, application.CommandNewProject); !errors.Is(err, project.ErrProjectExists) {
		t.Errorf("expected ErrProjectExists, got %v", err)
	}
}

func TestProjectWizard_RequiresUsername(t *testing.T) {
	h := newHarness(t)
	if err := h.command(t, noname, application.CommandNewProject); !errors.Is(err, project.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle, got %v", err)
	}
}

func TestProject_ConfirmEditDelete(t *testing.T) {
	h := newHarness(t)
	p := h.withProject(t, nil, nil)

	if _, err := h.press(t, dev1, p.CardMessageID, projectData(application.ProjectConfirm)); !errors.Is(err, workitem.ErrUnauthorized) {
		t.Fatalf("non-creator confirm: %v", err)
	}
	if _, err := h.press(t, boss, p.CardMessageID, projectData(application.ProjectConfirm)); err != nil {
		t.Fatal(err)
	}
	if !p.Confirmed || !strings.Contains(h.gw.messages[p.CardMessageID].Text, "Статус: подтверждён") {
		t.Error("confirm not shown")
	}
	for _, b := range h.gw.messages[p.CardMessageID].Keyboard[0] {
		if b.Data == projectData(application.ProjectConfirm) {
			t.Error("confirm button still offered")
		}
	}

	if _, err := h.press(t, boss, p.CardMessageID, projectData(application.ProjectEdit)); err != nil {
		t.Fatal(err)
	}
	if err := h.text(t, boss, "New scope"); err != nil {
		t.Fatal(err)
	}
	if p.Description != "New scope" || !strings.Contains(h.gw.messages[p.CardMessageID].Text, "Описание: New scope") {
		t.Error("edit not applied")
	}

	cardID := p.CardMessageID
	if _, err := h.press(t, boss, cardID, projectData(application.ProjectDelete)); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.projects.Get(chat); ok {
		t.Error("project still in directory")
	}
	if _, ok := h.gw.messages[cardID]; ok {
		t.Error("card not deleted")
	}
}

func TestTeam_AddMembers(t *testing.T) {
	h := newHarness(t)
	p := h.withProject(t, nil, nil)

	if err := h.command(t, dev1, application.CommandTeam); !errors.Is(err, workitem.ErrUnauthorized) {
		t.Fatalf("non-creator /team: %v", err)
	}
	if err := h.command(t, boss, application.CommandTeam); err != nil {
		t.Fatal(err)
	}
	menuID, menu := h.gw.last(t)
	if len(menu.Keyboard) != 3 {
		t.Fatalf("team menu = %+v", menu)
	}

	if _, err := h.press(t, boss, menuID, teamData(application.TeamDeveloper)); err != nil {
		t.Fatal(err)
	}
	if err := h.text(t, boss, " dev1 "); err != nil {
		t.Fatal(err)
	}
	if _, err := h.press(t, boss, menuID, teamData(application.TeamTester)); err != nil {
		t.Fatal(err)
	}
	if err := h.text(t, boss, "@test1"); err != nil {
		t.Fatal(err)
	}

	if len(p.Developers) != 1 || p.Developers[0] != "@dev1" || len(p.Testers) != 1 || p.Testers[0] != "@test1" {
		t.Errorf("roster = %v / %v", p.Developers, p.Testers)
	}
	card := h.gw.messages[p.CardMessageID].Text
	if !strings.Contains(card, "Разработчики:\n@dev1") || !strings.Contains(card, "Тестировщики:\n@test1") {
		t.Errorf("card roster:\n%s", card)
	}

	if _, err := h.press(t, boss, menuID, teamData(application.TeamClose)); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.gw.messages[menuID]; ok {
		t.Error("team menu not closed")
	}
}

func TestTeam_InvalidHandle(t *testing.T) {
	h := newHarness(t)
	h.withProject(t, nil, nil)
	if _, err := h.press(t, boss, 0, teamData(application.TeamDeveloper)); err != nil {
		t.Fatal(err)
	}
	if err := h.text(t, boss, "@noDev"); !errors.Is(err, project.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle, got %v", err)
	}
}

func TestAddTask_PickersAndPlaceholders(t *testing.T) {
	h := newHarness(t)
	h.withProject(t, []team.Handle{"@dev1", "@dev2"}, nil)

	if err := h.command(t, boss, application.CommandAddTask); err != nil {
		t.Fatal(err)
	}
	_, picker := h.gw.last(t)
	if len(picker.Keyboard) != 2 {
		t.Fatalf("developer picker = %+v", picker)
	}

	pick := application.Callback{Scope: application.ScopePick, Action: application.TeamDeveloper, Arg: "@stranger"}.String()
	if _, err := h.press(t, boss, 0, pick); !errors.Is(err, project.ErrInvalidHandle) {
		t.Errorf("picking a non-member: %v", err)
	}
	if _, err := h.press(t, boss, 0, picker.Keyboard[1][0].Data); err != nil {
		t.Fatal(err)
	}
	if err := h.text(t, boss, "build it"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.press(t, boss, 0, application.ScopeSkip); err != nil {
		t.Fatal(err)
	}

	items := h.items.List(chat)
	if len(items) != 1 {
		t.Fatalf("items = %d", len(items))
	}
	a := items[0].Assignment
	if a.Developer != "@dev2" || a.Tester != team.NoTester {
		t.Errorf("assignment = %+v", a)
	}
}

func TestAddTask_CreatorOnlyAndNeedsProject(t *testing.T) {
	h := newHarness(t)
	if err := h.command(t, boss, application.CommandAddTask); !errors.Is(err, project.ErrNoProject) {
		t.Errorf("no project: %v", err)
	}
	h.withProject(t, oneDev, oneTester)
	if err := h.command(t, dev1, application.CommandAddTask); !errors.Is(err, workitem.ErrUnauthorized) {
		t.Errorf("dev addTask: %v", err)
	}
}

func TestAddTask_UnregisteredCardIsDeleted(t *testing.T) {
	h := newHarness(t)
	h.withProject(t, oneDev, oneTester)
	_ = h.command(t, boss, application.CommandAddTask)
	_ = h.text(t, boss, "build it")

	cardID := h.occupyNextMessage(t)
	if _, err := h.press(t, boss, 0, application.ScopeSkip); err == nil {
		t.Fatal("expected registry error")
	}
	if _, ok := h.gw.messages[cardID]; ok {
		t.Error("orphan task card left in chat")
	}
	if n := len(h.items.List(chat, workitem.KindTask)); n != 0 {
		t.Errorf("tasks = %d", n)
	}
}

func TestCancel_ClosesPrompt(t *testing.T) {
	h := newHarness(t)
	h.withProject(t, oneDev, oneTester)
	_ = h.command(t, boss, application.CommandAddTask)
	promptID, _ := h.gw.last(t)

	if err := h.command(t, boss, application.CommandCancel); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.gw.messages[promptID]; ok {
		t.Error("prompt not deleted")
	}
	if err := h.text(t, boss, "ignored"); err != nil {
		t.Fatal(err)
	}
	if len(h.items.List(chat)) != 0 {
		t.Error("text after cancel created a task")
	}
}

func TestProject_PublishSeeded(t *testing.T) {
	h := newHarness(t)
	h.projects.Merge([]storage.RosterEntry{{
		ChatID:     chat,
		Name:       "Seeded",
		Creator:    "@boss",
		Developers: []string{"@dev1"},
	}}, h.clock)

	ctx := context.Background()
	if err := h.app.Projects.Publish(ctx, chat); err != nil {
		t.Fatal(err)
	}
	p, _ := h.projects.Get(chat)
	card, ok := h.gw.messages[p.CardMessageID]
	if !ok {
		t.Fatal("seeded project card was not posted")
	}
	if !card.Pinned || card.Keyboard == nil || !strings.Contains(card.Text, "Проект: Seeded") {
		t.Errorf("card = %+v", card)
	}

	sent := len(h.gw.sent)
	if err := h.app.Projects.Publish(ctx, chat); err != nil {
		t.Fatal(err)
	}
	if len(h.gw.sent) != sent {
		t.Error("second publish should not post another card")
	}
	if err := h.app.Projects.Publish(ctx, -999); err != nil {
		t.Errorf("publish for unknown chat: %v", err)
	}
}
