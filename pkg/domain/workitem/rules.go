package workitem

import "github.com/felixgeelhaar/cardflow/pkg/domain/team"

// Action is a user-triggered operation on a card.
type Action string

// Lifecycle actions (present in the transition table).
const (
	ActionConfirm Action = "confirm"
	ActionStart   Action = "start"
	ActionDone    Action = "done"
	ActionAccept  Action = "accept"
	ActionClose   Action = "close"
	ActionReject  Action = "reject"
)

// Card maintenance actions (exposed as controls, not stage transitions).
const (
	ActionComment Action = "comment"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
)

func (a Action) String() string { return string(a) }

// Party is the role tag written into a stamp.
type Party string

const (
	PartyProject   Party = "P"
	PartyDeveloper Party = "D"
	PartyTester    Party = "T"
)

// Rule is one row of the transition table: from-stage x action.
type Rule struct {
	From   Stage
	Action Action
	To     Stage
	// Stamp names whose handle the stamp carries. Empty for rules that spawn.
	Stamp  Party
	Permit team.Permit
	Spawns bool
}

// Moves reports whether applying the rule changes the item's stage.
func (r Rule) Moves() bool {
	return !r.Spawns && r.From != r.To
}

var taskRules = []Rule{
	{From: StageNew, Action: ActionConfirm, To: StageConfirmed, Stamp: PartyProject, Permit: team.PermitCreator},
	{From: StageConfirmed, Action: ActionStart, To: StageWork, Stamp: PartyDeveloper, Permit: team.PermitCreator | team.PermitDeveloper},
	{From: StageWork, Action: ActionDone, To: StageTest, Stamp: PartyTester, Permit: team.PermitCreator | team.PermitDeveloper},
	{From: StageTest, Action: ActionAccept, To: StageAccept, Stamp: PartyProject, Permit: team.PermitCreator | team.PermitTester},
	{From: StageTest, Action: ActionReject, To: StageTest, Spawns: true, Permit: team.PermitCreator | team.PermitTester},
	{From: StageAccept, Action: ActionClose, To: StageClosed, Stamp: PartyProject, Permit: team.PermitCreator},
	{From: StageAccept, Action: ActionReject, To: StageAccept, Spawns: true, Permit: team.PermitCreator},
}

// Glitches and fixes share the abbreviated path that starts at work.
var repairRules = []Rule{
	{From: StageWork, Action: ActionDone, To: StageTest, Stamp: PartyTester, Permit: team.PermitCreator | team.PermitDeveloper},
	{From: StageTest, Action: ActionAccept, To: StageAccept, Stamp: PartyProject, Permit: team.PermitCreator | team.PermitTester},
	{From: StageTest, Action: ActionReject, To: StageTest, Spawns: true, Permit: team.PermitCreator | team.PermitTester},
	{From: StageAccept, Action: ActionClose, To: StageClosed, Stamp: PartyProject, Permit: team.PermitCreator},
	{From: StageAccept, Action: ActionReject, To: StageAccept, Spawns: true, Permit: team.PermitCreator},
}

// Rules returns the transition table for a kind.
func Rules(kind Kind) []Rule {
	if kind == KindTask {
		return taskRules
	}
	return repairRules
}

// LookupRule finds the rule for an action from a stage.
func LookupRule(kind Kind, from Stage, action Action) (Rule, bool) {
	for _, r := range Rules(kind) {
		if r.From == from && r.Action == action {
			return r, true
		}
	}
	return Rule{}, false
}

// ValidActions returns the lifecycle actions available from a stage.
func ValidActions(kind Kind, from Stage) []Action {
	var actions []Action
	for _, r := range Rules(kind) {
		if r.From == from {
			actions = append(actions, r.Action)
		}
	}
	return actions
}

// Controls returns the ordered action set shown on a card at the given stage.
func Controls(kind Kind, stage Stage) []Action {
	switch stage {
	case StageNew:
		if kind == KindTask {
			return []Action{ActionConfirm, ActionEdit, ActionDelete}
		}
	case StageConfirmed:
		if kind == KindTask {
			return []Action{ActionComment, ActionStart}
		}
	case StageWork:
		return []Action{ActionComment, ActionDone}
	case StageTest:
		return []Action{ActionReject, ActionComment, ActionAccept}
	case StageAccept:
		return []Action{ActionReject, ActionComment, ActionClose}
	}
	return nil
}

// CommentPermit is who may comment on a card.
const CommentPermit = team.PermitMembers

var maintenancePermits = map[Action]team.Permit{
	ActionComment: CommentPermit,
	ActionEdit:    team.PermitCreator,
	ActionDelete:  team.PermitCreator,
}
