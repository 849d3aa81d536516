package workitem

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
)

// CardRef locates the chat message hosting a card.
type CardRef struct {
	MessageID int64  `json:"message_id"`
	PhotoID   string `json:"photo_id,omitempty"`
}

// HasPhoto reports whether the card is a photo with a caption rather than plain text.
func (c CardRef) HasPhoto() bool {
	return c.PhotoID != ""
}

// WorkItem is a task, glitch or fix tracked on a chat card.
type WorkItem struct {
	Kind        Kind            `json:"kind"`
	Seq         int             `json:"seq"`
	ChatID      int64           `json:"chat_id"`
	Card        CardRef         `json:"card"`
	Assignment  team.Assignment `json:"assignment"`
	Description string          `json:"description"`
	BaseText    string          `json:"base_text"`
	History     []string        `json:"history"`
	Stage       Stage           `json:"stage"`
	CreatedAt   time.Time       `json:"created_at"`
}

// New creates an item at its kind's initial stage with an empty history.
func New(kind Kind, seq int, chatID int64, description string, a team.Assignment, now time.Time) *WorkItem {
	return &WorkItem{
		Kind:        kind,
		Seq:         seq,
		ChatID:      chatID,
		Assignment:  a,
		Description: description,
		BaseText:    BaseText(kind, seq, description, a),
		Stage:       kind.InitialStage(),
		CreatedAt:   now,
	}
}

// ID is unique across kinds, e.g. "task-3".
func (w *WorkItem) ID() string {
	return fmt.Sprintf("%s-%d", w.Kind, w.Seq)
}

// Label is the card prefix, e.g. "ТЗ-3".
func (w *WorkItem) Label() string {
	return fmt.Sprintf("%s-%d", w.Kind.Label(), w.Seq)
}

// DisplayText is the card text: base text followed by the status history.
func (w *WorkItem) DisplayText() string {
	return Render(w.BaseText, w.History)
}

// Transition is a validated but not yet applied lifecycle step.
type Transition struct {
	Item      string
	Kind      Kind
	Rule      Rule
	StampLine string
	At        time.Time
}

// Plan validates an action against the item's stage and the actor's roles without
// mutating the item. expected is the stage the triggering control was rendered
// for; a mismatch means the press is stale. An empty expected skips that check.
func (w *WorkItem) Plan(action Action, expected Stage, roles team.Roles, creator team.Handle, at time.Time) (Transition, error) {
	if expected != "" && expected != w.Stage {
		return Transition{}, &TransitionError{Item: w.Label(), From: w.Stage, Action: action, Expected: expected}
	}
	rule, ok := LookupRule(w.Kind, w.Stage, action)
	if !ok {
		return Transition{}, &TransitionError{Item: w.Label(), From: w.Stage, Action: action}
	}
	if !rule.Permit.Allows(roles) {
		return Transition{}, &AuthorizationError{Action: action, Hint: rule.Permit.Hint()}
	}

	t := Transition{Item: w.ID(), Kind: w.Kind, Rule: rule, At: at}
	if rule.Spawns {
		return t, nil
	}

	m, err := NewMachine(w.Kind, w.Stage, w.ID(), func(string, string) bool {
		return rule.Permit.Allows(roles)
	})
	if err != nil {
		return Transition{}, err
	}
	if err := m.Fire(action); err != nil {
		return Transition{}, fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	if m.Current() != rule.To {
		return Transition{}, fmt.Errorf("lifecycle table and machine disagree on %s %s: %s vs %s", w.Stage, action, rule.To, m.Current())
	}

	t.StampLine = Stamp(rule.To, at, rule.Stamp, w.stampHandle(rule.Stamp, creator))
	return t, nil
}

func (w *WorkItem) stampHandle(p Party, creator team.Handle) team.Handle {
	switch p {
	case PartyDeveloper:
		return w.Assignment.Developer
	case PartyTester:
		return w.Assignment.Tester
	default:
		return creator
	}
}

// Preview renders the card text the item would show after t is applied.
func (w *WorkItem) Preview(t Transition) string {
	if !t.Rule.Moves() {
		return w.DisplayText()
	}
	history := make([]string, 0, len(w.History)+1)
	history = append(history, w.History...)
	history = append(history, t.StampLine)
	return Render(w.BaseText, history)
}

// Apply commits a planned transition: the stamp and the stage change land together.
func (w *WorkItem) Apply(t Transition) error {
	if t.Rule.From != w.Stage {
		return &TransitionError{Item: w.Label(), From: w.Stage, Action: t.Rule.Action, Expected: t.Rule.From}
	}
	if !t.Rule.Moves() {
		return nil
	}
	w.History = append(w.History, t.StampLine)
	w.Stage = t.Rule.To
	return nil
}

// PlanEdit validates a description change and returns the resulting card text.
// Descriptions can only change before the card enters the lifecycle.
func (w *WorkItem) PlanEdit(description string) (string, error) {
	if w.Stage != StageNew {
		return "", &TransitionError{Item: w.Label(), From: w.Stage, Action: ActionEdit}
	}
	return Render(BaseText(w.Kind, w.Seq, description, w.Assignment), w.History), nil
}

// CommitEdit applies a description change validated by PlanEdit.
func (w *WorkItem) CommitEdit(description string) {
	w.Description = description
	w.BaseText = BaseText(w.Kind, w.Seq, description, w.Assignment)
}

// Authorize checks a card maintenance action (comment, edit, delete) against the
// controls offered at the item's current stage.
func (w *WorkItem) Authorize(action Action, expected Stage, roles team.Roles) error {
	if expected != "" && expected != w.Stage {
		return &TransitionError{Item: w.Label(), From: w.Stage, Action: action, Expected: expected}
	}
	offered := false
	for _, a := range Controls(w.Kind, w.Stage) {
		if a == action {
			offered = true
			break
		}
	}
	permit, maintenance := maintenancePermits[action]
	if !offered || !maintenance {
		return &TransitionError{Item: w.Label(), From: w.Stage, Action: action}
	}
	if !permit.Allows(roles) {
		return &AuthorizationError{Action: action, Hint: permit.Hint()}
	}
	return nil
}
