// Package workitem models tracked chat cards (tasks, glitches, fixes) and their lifecycle.
package workitem

import "fmt"

// Kind distinguishes the three tracked item types.
type Kind string

const (
	KindTask   Kind = "task"
	KindGlitch Kind = "glitch"
	KindFix    Kind = "fix"
)

// AllKinds returns every kind in display order.
func AllKinds() []Kind {
	return []Kind{KindTask, KindGlitch, KindFix}
}

// IsValid returns true if the kind is recognized.
func (k Kind) IsValid() bool {
	switch k {
	case KindTask, KindGlitch, KindFix:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Label is the prefix shown on cards.
func (k Kind) Label() string {
	switch k {
	case KindTask:
		return "ТЗ"
	case KindGlitch:
		return "Глюк"
	case KindFix:
		return "Правка"
	default:
		return string(k)
	}
}

// InitialStage is where a freshly created item of this kind starts.
// Glitches and fixes skip the approval steps and go straight to work.
func (k Kind) InitialStage() Stage {
	if k == KindTask {
		return StageNew
	}
	return StageWork
}

// OnProjectCard reports whether items of this kind are listed on the project card.
func (k Kind) OnProjectCard() bool {
	return k == KindTask
}

// ParseKind parses a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("invalid item kind: %s", s)
	}
	return k, nil
}
