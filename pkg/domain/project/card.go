package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

// Directory looks up and stores the project of each chat.
type Directory interface {
	Get(chatID int64) (*Project, bool)
	Save(p *Project)
	Delete(chatID int64) bool
}

// TaskLine renders the project-card summary for one task.
func TaskLine(w *workitem.WorkItem) string {
	return fmt.Sprintf("#%s: %s (%s) #%s", w.Label(), w.Description, w.Assignment.Developer, w.Stage)
}

// RenderCard builds the project card text: the header plus one line per task.
// Glitches and fixes never appear. The result depends only on its inputs.
func RenderCard(p *Project, items []*workitem.WorkItem, loc *time.Location) string {
	text := p.Header(loc)

	var lines []string
	for _, w := range items {
		if !w.Kind.OnProjectCard() {
			continue
		}
		lines = append(lines, TaskLine(w))
	}
	if len(lines) == 0 {
		return text
	}
	return text + "\n\nЗадачи:\n" + strings.Join(lines, "\n")
}
