package workitem

import "fmt"

// Stage is the lifecycle position of a work item.
type Stage string

// Stage constants double as statekit state IDs and as the stamp tags on cards.
const (
	StageNew       Stage = "new"
	StageConfirmed Stage = "confirmed"
	StageWork      Stage = "work"
	StageTest      Stage = "test"
	StageAccept    Stage = "accept"
	StageClosed    Stage = "closed"
)

// AllStages returns every stage in lifecycle order.
func AllStages() []Stage {
	return []Stage{StageNew, StageConfirmed, StageWork, StageTest, StageAccept, StageClosed}
}

// IsValid returns true if the stage is recognized.
func (s Stage) IsValid() bool {
	switch s {
	case StageNew, StageConfirmed, StageWork, StageTest, StageAccept, StageClosed:
		return true
	}
	return false
}

func (s Stage) String() string { return string(s) }

// IsFinal returns true for the terminal stage.
func (s Stage) IsFinal() bool {
	return s == StageClosed
}

// DisplayName returns a human-readable name for the stage.
func (s Stage) DisplayName() string {
	switch s {
	case StageNew:
		return "Новый"
	case StageConfirmed:
		return "Подтверждён"
	case StageWork:
		return "В работе"
	case StageTest:
		return "На проверке"
	case StageAccept:
		return "На приёмке"
	case StageClosed:
		return "Закрыт"
	default:
		return string(s)
	}
}

// ParseStage parses a string into a Stage.
func ParseStage(s string) (Stage, error) {
	st := Stage(s)
	if !st.IsValid() {
		return "", fmt.Errorf("invalid stage: %s", s)
	}
	return st, nil
}
