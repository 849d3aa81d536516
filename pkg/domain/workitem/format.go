package workitem

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
)

// StampLayout renders the stamp timestamp as DD.MM HH:MM.
const StampLayout = "02.01 15:04"

// BaseText renders the immutable head of a card.
func BaseText(kind Kind, seq int, description string, a team.Assignment) string {
	return fmt.Sprintf("#%s-%d: (ТТ)\n--%s\nD::#%s T::#%s",
		kind.Label(), seq, description, a.Developer.Tag(), a.Tester.Tag())
}

// Stamp renders one status line: "#<stage> <DD.MM HH:MM> <party>::#<handle>".
func Stamp(stage Stage, at time.Time, party Party, h team.Handle) string {
	return fmt.Sprintf("#%s %s %s::#%s", stage, at.Format(StampLayout), party, h.Tag())
}

// Render joins the base text with the status history.
func Render(base string, history []string) string {
	return base + "\n" + strings.Join(history, "\n")
}

// StageOfStamp extracts the stage tag a stamp was produced for.
func StageOfStamp(stamp string) (Stage, bool) {
	if !strings.HasPrefix(stamp, "#") {
		return "", false
	}
	tag, _, _ := strings.Cut(stamp[1:], " ")
	st := Stage(tag)
	return st, st.IsValid()
}

// StageFromHistory derives the stage an item must be at given its history.
func StageFromHistory(kind Kind, history []string) Stage {
	if len(history) == 0 {
		return kind.InitialStage()
	}
	st, ok := StageOfStamp(history[len(history)-1])
	if !ok {
		return kind.InitialStage()
	}
	return st
}
