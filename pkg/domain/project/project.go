// Package project holds the per-chat project aggregate: creator, roster and the pinned card.
package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
)

// Placeholder shown on the card until the wizard collects a value.
const Unset = "(пока не указано)"

// Role selects which roster list a member is added to.
type Role string

const (
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
)

// IsValid checks if the role is a recognized value.
func (r Role) IsValid() bool {
	return r == RoleDeveloper || r == RoleTester
}

// Project is owned by a chat and created by one user.
type Project struct {
	ChatID      int64         `json:"chat_id" yaml:"chat_id"`
	Name        string        `json:"name" yaml:"name"`
	Description string        `json:"description" yaml:"description"`
	Creator     team.Handle   `json:"creator" yaml:"creator"`
	Developers  []team.Handle `json:"developers" yaml:"developers"`
	Testers     []team.Handle `json:"testers" yaml:"testers"`
	Confirmed   bool          `json:"confirmed" yaml:"confirmed"`
	CreatedAt   time.Time     `json:"created_at" yaml:"created_at"`

	// Card is the pinned project message; zero until the card is sent.
	CardMessageID int64  `json:"card_message_id,omitempty" yaml:"-"`
	ImageID       string `json:"image_id,omitempty" yaml:"-"`

	// Published is the last text pushed to the card, used to suppress no-op edits.
	Published string `json:"-" yaml:"-"`
}

// New creates an unnamed project for the chat.
func New(chatID int64, creator team.Handle, now time.Time) *Project {
	return &Project{
		ChatID:    chatID,
		Creator:   creator,
		CreatedAt: now,
	}
}

// CreatorHandle implements team.Membership.
func (p *Project) CreatorHandle() team.Handle {
	return p.Creator
}

// AddMember appends a handle to the role's roster. It reports false when the
// handle was already listed.
func (p *Project) AddMember(role Role, h team.Handle) (bool, error) {
	if !h.IsAssignable() {
		return false, fmt.Errorf("%w: %s", ErrInvalidHandle, h)
	}
	switch role {
	case RoleDeveloper:
		if contains(p.Developers, h) {
			return false, nil
		}
		p.Developers = append(p.Developers, h)
	case RoleTester:
		if contains(p.Testers, h) {
			return false, nil
		}
		p.Testers = append(p.Testers, h)
	default:
		return false, fmt.Errorf("invalid role: %s", role)
	}
	return true, nil
}

// RemoveMember drops a handle from the role's roster.
func (p *Project) RemoveMember(role Role, h team.Handle) bool {
	switch role {
	case RoleDeveloper:
		var ok bool
		p.Developers, ok = without(p.Developers, h)
		return ok
	case RoleTester:
		var ok bool
		p.Testers, ok = without(p.Testers, h)
		return ok
	}
	return false
}

// Members returns the roster for a role.
func (p *Project) Members(role Role) []team.Handle {
	if role == RoleDeveloper {
		return p.Developers
	}
	return p.Testers
}

// Header renders the static part of the project card.
func (p *Project) Header(loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Проект: %s\n", orUnset(p.Name))
	fmt.Fprintf(&b, "Описание: %s\n", orUnset(p.Description))
	fmt.Fprintf(&b, "Создан: %s\n", p.CreatedAt.In(loc).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Creator: %s\n", p.Creator)
	if p.Confirmed {
		b.WriteString("Статус: подтверждён\n")
	}
	b.WriteString("\nКоманда:\nРазработчики:")
	for _, h := range p.Developers {
		b.WriteString("\n" + string(h))
	}
	b.WriteString("\nТестировщики:")
	for _, h := range p.Testers {
		b.WriteString("\n" + string(h))
	}
	return b.String()
}

func orUnset(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unset
	}
	return s
}

func contains(list []team.Handle, h team.Handle) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}

func without(list []team.Handle, h team.Handle) ([]team.Handle, bool) {
	for i, x := range list {
		if x == h {
			return append(list[:i:i], list[i+1:]...), true
		}
	}
	return list, false
}
