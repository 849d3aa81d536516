package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
)

// ProjectDirectory is an in-memory project.Directory keyed by chat.
type ProjectDirectory struct {
	mu       sync.RWMutex
	projects map[int64]*project.Project
}

// NewProjectDirectory creates an empty directory.
func NewProjectDirectory() *ProjectDirectory {
	return &ProjectDirectory{projects: make(map[int64]*project.Project)}
}

func (d *ProjectDirectory) Get(chatID int64) (*project.Project, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.projects[chatID]
	return p, ok
}

func (d *ProjectDirectory) Save(p *project.Project) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.projects[p.ChatID] = p
}

func (d *ProjectDirectory) Delete(chatID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.projects[chatID]
	delete(d.projects, chatID)
	return ok
}

// ChatIDs returns all known chats, sorted.
func (d *ProjectDirectory) ChatIDs() []int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]int64, 0, len(d.projects))
	for id := range d.projects {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge applies roster entries. Unknown chats get a new project; known chats keep
// their name, description, card and team members, and gain any seeded handles. Changed
// projects are stored as copies so holders of the old pointer are not raced.
// It returns the chats whose project changed.
func (d *ProjectDirectory) Merge(entries []RosterEntry, now time.Time) []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	var changed []int64
	for _, e := range entries {
		var next project.Project
		if current, ok := d.projects[e.ChatID]; ok {
			next = *current
		} else {
			next = project.Project{ChatID: e.ChatID, Name: e.Name, Description: e.Description, CreatedAt: now}
		}
		_, known := d.projects[e.ChatID]
		if e.apply(&next) || !known {
			d.projects[e.ChatID] = &next
			changed = append(changed, e.ChatID)
		}
	}
	return changed
}
