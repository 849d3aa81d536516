package workitem_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

var (
	creator = team.Handle("@boss")
	devTest = team.Assignment{Developer: "@dev1", Tester: "@test1"}
	at      = time.Date(2026, 3, 7, 9, 5, 0, 0, time.UTC)

	asCreator = team.Roles{Creator: true}
	asDev     = team.Roles{Developer: true}
	asTester  = team.Roles{Tester: true}
)

func newTask() *workitem.WorkItem {
	return workitem.New(workitem.KindTask, 1, 100, "fix the button", devTest, at)
}

func step(t *testing.T, w *workitem.WorkItem, action workitem.Action, roles team.Roles) {
	t.Helper()
	tr, err := w.Plan(action, w.Stage, roles, creator, at)
	if err != nil {
		t.Fatalf("%s at %s: %v", action, w.Stage, err)
	}
	if err := w.Apply(tr); err != nil {
		t.Fatalf("apply %s: %v", action, err)
	}
	assertInvariants(t, w)
}

func assertInvariants(t *testing.T, w *workitem.WorkItem) {
	t.Helper()
	want := w.BaseText + "\n" + strings.Join(w.History, "\n")
	if w.DisplayText() != want {
		t.Errorf("display text diverged:\n%q\nwant\n%q", w.DisplayText(), want)
	}
	if got := workitem.StageFromHistory(w.Kind, w.History); got != w.Stage {
		t.Errorf("stage %s not derivable from history (got %s)", w.Stage, got)
	}
}

func TestNew_TaskBaseText(t *testing.T) {
	w := newTask()
	want := "#ТЗ-1: (ТТ)\n--fix the button\nD::#dev1 T::#test1"
	if w.BaseText != want {
		t.Errorf("BaseText = %q, want %q", w.BaseText, want)
	}
	if w.Stage != workitem.StageNew {
		t.Errorf("Stage = %s, want new", w.Stage)
	}
	if len(w.History) != 0 {
		t.Errorf("expected empty history")
	}
	assertInvariants(t, w)
}

func TestNew_RepairKindsStartAtWork(t *testing.T) {
	g := workitem.New(workitem.KindGlitch, 4, 100, "crash", devTest, at)
	if g.Stage != workitem.StageWork {
		t.Errorf("glitch stage = %s", g.Stage)
	}
	if !strings.HasPrefix(g.BaseText, "#Глюк-4: ") {
		t.Errorf("glitch base text = %q", g.BaseText)
	}
	f := workitem.New(workitem.KindFix, 2, 100, "padding", devTest, at)
	if !strings.HasPrefix(f.BaseText, "#Правка-2: ") {
		t.Errorf("fix base text = %q", f.BaseText)
	}
}

func TestTask_FullLifecycle(t *testing.T) {
	w := newTask()
	step(t, w, workitem.ActionConfirm, asCreator)
	step(t, w, workitem.ActionStart, asDev)
	step(t, w, workitem.ActionDone, asDev)
	step(t, w, workitem.ActionAccept, asTester)
	step(t, w, workitem.ActionClose, asCreator)

	if w.Stage != workitem.StageClosed {
		t.Fatalf("Stage = %s, want closed", w.Stage)
	}
	want := []string{
		"#confirmed 07.03 09:05 P::#boss",
		"#work 07.03 09:05 D::#dev1",
		"#test 07.03 09:05 T::#test1",
		"#accept 07.03 09:05 P::#boss",
		"#closed 07.03 09:05 P::#boss",
	}
	if len(w.History) != len(want) {
		t.Fatalf("history = %v", w.History)
	}
	for i := range want {
		if w.History[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, w.History[i], want[i])
		}
	}
	if got := workitem.Controls(w.Kind, w.Stage); len(got) != 0 {
		t.Errorf("closed card should expose no controls, got %v", got)
	}
}

func TestPlan_UnauthorizedDoesNotMutate(t *testing.T) {
	w := newTask()
	step(t, w, workitem.ActionConfirm, asCreator)
	step(t, w, workitem.ActionStart, asDev)

	before := append([]string(nil), w.History...)
	_, err := w.Plan(workitem.ActionDone, workitem.StageWork, team.Roles{}, creator, at)
	if !errors.Is(err, workitem.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	var authErr *workitem.AuthorizationError
	if !errors.As(err, &authErr) || authErr.Hint == "" {
		t.Errorf("expected role hint, got %v", err)
	}
	if w.Stage != workitem.StageWork || len(w.History) != len(before) {
		t.Errorf("item mutated by unauthorized attempt")
	}
}

func TestPlan_RoleTable(t *testing.T) {
	tests := []struct {
		name   string
		kind   workitem.Kind
		stage  workitem.Stage
		action workitem.Action
		roles  team.Roles
		ok     bool
	}{
		{"creator confirms", workitem.KindTask, workitem.StageNew, workitem.ActionConfirm, asCreator, true},
		{"dev cannot confirm", workitem.KindTask, workitem.StageNew, workitem.ActionConfirm, asDev, false},
		{"dev starts", workitem.KindTask, workitem.StageConfirmed, workitem.ActionStart, asDev, true},
		{"tester cannot start", workitem.KindTask, workitem.StageConfirmed, workitem.ActionStart, asTester, false},
		{"creator marks done", workitem.KindTask, workitem.StageWork, workitem.ActionDone, asCreator, true},
		{"tester cannot mark done", workitem.KindTask, workitem.StageWork, workitem.ActionDone, asTester, false},
		{"tester accepts", workitem.KindTask, workitem.StageTest, workitem.ActionAccept, asTester, true},
		{"dev cannot accept", workitem.KindTask, workitem.StageTest, workitem.ActionAccept, asDev, false},
		{"tester rejects at test", workitem.KindTask, workitem.StageTest, workitem.ActionReject, asTester, true},
		{"tester cannot reject at accept", workitem.KindTask, workitem.StageAccept, workitem.ActionReject, asTester, false},
		{"creator rejects at accept", workitem.KindTask, workitem.StageAccept, workitem.ActionReject, asCreator, true},
		{"tester cannot close", workitem.KindTask, workitem.StageAccept, workitem.ActionClose, asTester, false},
		{"glitch dev fixes", workitem.KindGlitch, workitem.StageWork, workitem.ActionDone, asDev, true},
		{"fix tester accepts", workitem.KindFix, workitem.StageTest, workitem.ActionAccept, asTester, true},
		{"fix creator closes", workitem.KindFix, workitem.StageAccept, workitem.ActionClose, asCreator, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := workitem.New(tt.kind, 1, 1, "d", devTest, at)
			w.Stage = tt.stage
			_, err := w.Plan(tt.action, tt.stage, tt.roles, creator, at)
			if tt.ok && err != nil {
				t.Errorf("expected success, got %v", err)
			}
			if !tt.ok && !errors.Is(err, workitem.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestPlan_DoublePressIsInvalid(t *testing.T) {
	w := newTask()
	step(t, w, workitem.ActionConfirm, asCreator)
	step(t, w, workitem.ActionStart, asDev)

	first, err := w.Plan(workitem.ActionDone, workitem.StageWork, asDev, creator, at)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Apply(first); err != nil {
		t.Fatal(err)
	}

	// The second press carries the stage its button was rendered for.
	_, err = w.Plan(workitem.ActionDone, workitem.StageWork, asDev, creator, at)
	if !errors.Is(err, workitem.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// Replaying the already applied plan is rejected too.
	if err := w.Apply(first); !errors.Is(err, workitem.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on replay, got %v", err)
	}
	if len(w.History) != 3 {
		t.Errorf("expected 3 stamps, got %d", len(w.History))
	}
}

func TestPlan_GlitchCannotCloseFromWork(t *testing.T) {
	g := workitem.New(workitem.KindGlitch, 1, 100, "crash", devTest, at)
	_, err := g.Plan(workitem.ActionClose, "", asCreator, creator, at)
	if !errors.Is(err, workitem.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if len(g.History) != 0 || g.Stage != workitem.StageWork {
		t.Errorf("glitch mutated")
	}
}

func TestPlan_RejectDoesNotMoveStage(t *testing.T) {
	w := newTask()
	w.Stage = workitem.StageTest
	tr, err := w.Plan(workitem.ActionReject, workitem.StageTest, asTester, creator, at)
	if err != nil {
		t.Fatal(err)
	}
	if !tr.Rule.Spawns || tr.StampLine != "" {
		t.Errorf("reject should spawn without a stamp: %+v", tr)
	}
	if err := w.Apply(tr); err != nil {
		t.Fatal(err)
	}
	if w.Stage != workitem.StageTest || len(w.History) != 0 {
		t.Errorf("reject mutated the item")
	}
}

func TestPreview_DoesNotMutate(t *testing.T) {
	w := newTask()
	tr, err := w.Plan(workitem.ActionConfirm, workitem.StageNew, asCreator, creator, at)
	if err != nil {
		t.Fatal(err)
	}
	text := w.Preview(tr)
	if !strings.HasSuffix(text, "\n#confirmed 07.03 09:05 P::#boss") {
		t.Errorf("preview = %q", text)
	}
	if len(w.History) != 0 {
		t.Error("preview appended to history")
	}
}

func TestEdit_OnlyAtNew(t *testing.T) {
	w := newTask()
	text, err := w.PlanEdit("new words")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(text, "--new words") {
		t.Errorf("edit preview = %q", text)
	}
	if w.Description != "fix the button" {
		t.Error("PlanEdit mutated description")
	}
	w.CommitEdit("new words")
	if w.Description != "new words" || !strings.Contains(w.BaseText, "--new words") {
		t.Errorf("edit not committed: %+v", w)
	}

	step(t, w, workitem.ActionConfirm, asCreator)
	if _, err := w.PlanEdit("late"); !errors.Is(err, workitem.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition after confirm, got %v", err)
	}
}

func TestAuthorize_MaintenanceControls(t *testing.T) {
	outsider := team.Roles{}
	tests := []struct {
		name    string
		stage   workitem.Stage
		action  workitem.Action
		roles   team.Roles
		wantErr error
	}{
		{"creator edits new", workitem.StageNew, workitem.ActionEdit, asCreator, nil},
		{"dev cannot edit", workitem.StageNew, workitem.ActionEdit, asDev, workitem.ErrUnauthorized},
		{"creator deletes new", workitem.StageNew, workitem.ActionDelete, asCreator, nil},
		{"no delete at work", workitem.StageWork, workitem.ActionDelete, asCreator, workitem.ErrInvalidTransition},
		{"tester comments at work", workitem.StageWork, workitem.ActionComment, asTester, nil},
		{"outsider cannot comment", workitem.StageWork, workitem.ActionComment, outsider, workitem.ErrUnauthorized},
		{"no comment at new", workitem.StageNew, workitem.ActionComment, asCreator, workitem.ErrInvalidTransition},
		{"lifecycle action is not maintenance", workitem.StageNew, workitem.ActionConfirm, asCreator, workitem.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTask()
			w.Stage = tt.stage
			err := w.Authorize(tt.action, tt.stage, tt.roles)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthorize_StalePress(t *testing.T) {
	w := newTask()
	err := w.Authorize(workitem.ActionEdit, workitem.StageWork, asCreator)
	if !errors.Is(err, workitem.ErrInvalidTransition) {
		t.Errorf("expected stale press to be invalid, got %v", err)
	}
}
