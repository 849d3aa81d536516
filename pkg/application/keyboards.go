package application

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

// Callback scopes.
const (
	ScopeItem    = "wi"
	ScopeProject = "pj"
	ScopeTeam    = "team"
	ScopePick    = "pick"
	ScopeSpawn   = "spawn"
	ScopeSkip    = "skip"
)

// Project and team callback actions.
const (
	ProjectConfirm = "confirm"
	ProjectEdit    = "edit"
	ProjectDelete  = "delete"

	TeamDeveloper = "dev"
	TeamTester    = "tester"
	TeamClose     = "close"
)

// Callback is decoded button data, "scope:action:arg".
type Callback struct {
	Scope  string
	Action string
	Arg    string
}

// String encodes the callback as button data.
func (c Callback) String() string {
	parts := []string{c.Scope}
	if c.Action != "" {
		parts = append(parts, c.Action)
	}
	if c.Arg != "" {
		parts = append(parts, c.Arg)
	}
	return strings.Join(parts, ":")
}

// ParseCallback decodes button data produced by Callback.String.
func ParseCallback(data string) (Callback, error) {
	parts := strings.SplitN(data, ":", 3)
	c := Callback{Scope: parts[0]}
	if len(parts) > 1 {
		c.Action = parts[1]
	}
	if len(parts) > 2 {
		c.Arg = parts[2]
	}

	switch c.Scope {
	case ScopeSkip:
		return c, nil
	case ScopeItem, ScopePick:
		if c.Action == "" || c.Arg == "" {
			return Callback{}, fmt.Errorf("malformed callback %q", data)
		}
	case ScopeProject, ScopeTeam, ScopeSpawn:
		if c.Action == "" {
			return Callback{}, fmt.Errorf("malformed callback %q", data)
		}
	default:
		return Callback{}, fmt.Errorf("unknown callback scope %q", data)
	}
	return c, nil
}

// ItemCallback is the button data for an action on a card at the given stage.
func ItemCallback(action workitem.Action, stage workitem.Stage) string {
	return Callback{Scope: ScopeItem, Action: string(action), Arg: string(stage)}.String()
}

// CardKeyboard renders the controls for an item card. Closed cards have none.
func CardKeyboard(kind workitem.Kind, stage workitem.Stage) messaging.Keyboard {
	var buttons []messaging.Button
	for _, action := range workitem.Controls(kind, stage) {
		buttons = append(buttons, messaging.Button{
			Text: actionLabel(kind, stage, action),
			Data: ItemCallback(action, stage),
		})
	}
	return messaging.Row(buttons...)
}

func actionLabel(kind workitem.Kind, stage workitem.Stage, action workitem.Action) string {
	switch action {
	case workitem.ActionConfirm:
		return "✅"
	case workitem.ActionEdit:
		return "✏️"
	case workitem.ActionDelete:
		return "❌"
	case workitem.ActionComment:
		if kind == workitem.KindTask {
			return "💬 Комментарии"
		}
		return "🟥 Комментарии"
	case workitem.ActionStart:
		return "🔵 В работу"
	case workitem.ActionDone:
		if kind == workitem.KindTask {
			return "✅ Сделано"
		}
		return "✅ Исправлено"
	case workitem.ActionReject:
		if stage == workitem.StageTest {
			return "❌ Не сделано"
		}
		return "❌ Не работает"
	case workitem.ActionAccept:
		return "✅ Работает"
	case workitem.ActionClose:
		return "✅ Принято"
	}
	return string(action)
}

// ProjectKeyboard is shown on the pinned project card.
func ProjectKeyboard(p *project.Project) messaging.Keyboard {
	var buttons []messaging.Button
	if !p.Confirmed {
		buttons = append(buttons, messaging.Button{Text: "✅", Data: Callback{Scope: ScopeProject, Action: ProjectConfirm}.String()})
	}
	buttons = append(buttons,
		messaging.Button{Text: "✏️", Data: Callback{Scope: ScopeProject, Action: ProjectEdit}.String()},
		messaging.Button{Text: "❌", Data: Callback{Scope: ScopeProject, Action: ProjectDelete}.String()},
	)
	return messaging.Row(buttons...)
}

// TeamKeyboard is the /team menu.
func TeamKeyboard() messaging.Keyboard {
	return messaging.Column(
		messaging.Button{Text: "Добавить разработчика", Data: Callback{Scope: ScopeTeam, Action: TeamDeveloper}.String()},
		messaging.Button{Text: "Добавить тестировщика", Data: Callback{Scope: ScopeTeam, Action: TeamTester}.String()},
		messaging.Button{Text: "Закрыть", Data: Callback{Scope: ScopeTeam, Action: TeamClose}.String()},
	)
}

// PickKeyboard lists roster members for the task wizard.
func PickKeyboard(role project.Role, handles []team.Handle) messaging.Keyboard {
	action := TeamDeveloper
	if role == project.RoleTester {
		action = TeamTester
	}
	buttons := make([]messaging.Button, 0, len(handles))
	for _, h := range handles {
		buttons = append(buttons, messaging.Button{
			Text: h.String(),
			Data: Callback{Scope: ScopePick, Action: action, Arg: h.String()}.String(),
		})
	}
	return messaging.Column(buttons...)
}

// SpawnKeyboard asks which kind of item a rejection creates.
func SpawnKeyboard() messaging.Keyboard {
	return messaging.Row(
		messaging.Button{Text: workitem.KindGlitch.Label(), Data: Callback{Scope: ScopeSpawn, Action: string(workitem.KindGlitch)}.String()},
		messaging.Button{Text: workitem.KindFix.Label(), Data: Callback{Scope: ScopeSpawn, Action: string(workitem.KindFix)}.String()},
	)
}

// SkipKeyboard offers to skip an optional image.
func SkipKeyboard() messaging.Keyboard {
	return messaging.Row(messaging.Button{Text: "Пропустить", Data: ScopeSkip})
}

// PickRole maps a pick or team callback action to a roster role.
func PickRole(action string) (project.Role, bool) {
	switch action {
	case TeamDeveloper:
		return project.RoleDeveloper, true
	case TeamTester:
		return project.RoleTester, true
	}
	return "", false
}
