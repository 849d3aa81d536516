package project_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

var created = time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC)

func TestProject_AddMember(t *testing.T) {
	p := project.New(1, "@boss", created)

	added, err := p.AddMember(project.RoleDeveloper, "@dev1")
	if err != nil || !added {
		t.Fatalf("AddMember = %v, %v", added, err)
	}
	added, err = p.AddMember(project.RoleDeveloper, "@dev1")
	if err != nil || added {
		t.Errorf("duplicate add = %v, %v", added, err)
	}
	if _, err := p.AddMember(project.RoleTester, team.UnknownHandle); !errors.Is(err, project.ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle, got %v", err)
	}
	if _, err := p.AddMember("owner", "@x"); err == nil {
		t.Error("expected error for unknown role")
	}
	if len(p.Developers) != 1 || len(p.Testers) != 0 {
		t.Errorf("roster = %v / %v", p.Developers, p.Testers)
	}
}

func TestProject_RemoveMember(t *testing.T) {
	p := project.New(1, "@boss", created)
	_, _ = p.AddMember(project.RoleTester, "@t1")
	_, _ = p.AddMember(project.RoleTester, "@t2")

	if !p.RemoveMember(project.RoleTester, "@t1") {
		t.Fatal("expected removal")
	}
	if p.RemoveMember(project.RoleTester, "@t1") {
		t.Error("second removal should report false")
	}
	if len(p.Testers) != 1 || p.Testers[0] != "@t2" {
		t.Errorf("testers = %v", p.Testers)
	}
}

func TestProject_Header(t *testing.T) {
	p := project.New(1, "@boss", created)
	h := p.Header(time.UTC)
	if !strings.Contains(h, "Проект: "+project.Unset) {
		t.Errorf("header should show placeholder name: %q", h)
	}
	if !strings.Contains(h, "Создан: 2026-05-01 12:30:00") {
		t.Errorf("header = %q", h)
	}

	p.Name = "Shop"
	_, _ = p.AddMember(project.RoleDeveloper, "@dev1")
	h = p.Header(time.UTC)
	if !strings.Contains(h, "Проект: Shop") || !strings.Contains(h, "Разработчики:\n@dev1\nТестировщики:") {
		t.Errorf("header = %q", h)
	}
}

func TestRenderCard_OnlyTasks(t *testing.T) {
	p := project.New(1, "@boss", created)
	a := team.Assignment{Developer: "@dev1", Tester: "@test1"}
	items := []*workitem.WorkItem{
		workitem.New(workitem.KindTask, 1, 1, "login", a, created),
		workitem.New(workitem.KindGlitch, 1, 1, "crash", a, created),
		workitem.New(workitem.KindTask, 2, 1, "logout", a, created),
		workitem.New(workitem.KindFix, 1, 1, "margin", a, created),
	}

	text := project.RenderCard(p, items, time.UTC)
	if got := strings.Count(text, "\n#ТЗ-"); got != 2 {
		t.Errorf("expected 2 task lines, got %d in %q", got, text)
	}
	if strings.Contains(text, "Глюк") || strings.Contains(text, "Правка") {
		t.Errorf("repair items leaked onto project card: %q", text)
	}
	if !strings.Contains(text, "#ТЗ-1: login (@dev1) #new") {
		t.Errorf("task line missing: %q", text)
	}
	if again := project.RenderCard(p, items, time.UTC); again != text {
		t.Error("rendering is not deterministic")
	}
}

func TestRenderCard_NoTasks(t *testing.T) {
	p := project.New(1, "@boss", created)
	glitch := workitem.New(workitem.KindGlitch, 1, 1, "crash", team.Assignment{}, created)
	text := project.RenderCard(p, []*workitem.WorkItem{glitch}, time.UTC)
	if text != p.Header(time.UTC) {
		t.Errorf("expected header only, got %q", text)
	}
}
