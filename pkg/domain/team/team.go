// Package team resolves what an acting chat user may do with a project and its work items.
package team

import "strings"

// Handle is a chat user reference in its normalized "@name" form.
type Handle string

const (
	// UnknownHandle stands in for users without a platform username.
	// "~" is not a legal username character, so it never matches an assignment.
	UnknownHandle Handle = "@~unknown"

	// NoDeveloper and NoTester fill an assignment when the roster is empty.
	NoDeveloper Handle = "@noDev"
	NoTester    Handle = "@noTester"
)

// NormalizeHandle converts a raw username ("dev1", "@dev1", " @dev1 ") into a Handle.
func NormalizeHandle(raw string) Handle {
	name := strings.TrimSpace(raw)
	name = strings.TrimPrefix(name, "@")
	if name == "" {
		return UnknownHandle
	}
	return Handle("@" + name)
}

// Tag returns the handle without the leading "@", as used in card stamps.
func (h Handle) Tag() string {
	return strings.TrimPrefix(string(h), "@")
}

func (h Handle) String() string { return string(h) }

// IsAssignable reports whether the handle can ever match a real user.
func (h Handle) IsAssignable() bool {
	switch h {
	case "", UnknownHandle, NoDeveloper, NoTester:
		return false
	}
	return true
}

// Assignment is the developer/tester pair captured when a work item is created.
type Assignment struct {
	Developer Handle `json:"developer" yaml:"developer"`
	Tester    Handle `json:"tester" yaml:"tester"`
}

// Membership is the project-side view the resolver needs.
type Membership interface {
	CreatorHandle() Handle
}

// Roles is the outcome of resolving an actor against a project and an item.
type Roles struct {
	Creator   bool
	Developer bool
	Tester    bool
}

// Any reports whether the actor holds at least one role.
func (r Roles) Any() bool {
	return r.Creator || r.Developer || r.Tester
}

// Resolve maps the acting handle to its roles. A missing project or item yields no roles.
func Resolve(actor Handle, project Membership, item *Assignment) Roles {
	if project == nil || item == nil || !actor.IsAssignable() {
		return Roles{}
	}
	return Roles{
		Creator:   actor == project.CreatorHandle(),
		Developer: actor == item.Developer,
		Tester:    actor == item.Tester,
	}
}

// IsCreator reports whether the actor created the project.
func IsCreator(actor Handle, project Membership) bool {
	if project == nil || !actor.IsAssignable() {
		return false
	}
	return actor == project.CreatorHandle()
}

// Permit is the set of roles allowed to perform an action.
type Permit uint8

const (
	PermitCreator Permit = 1 << iota
	PermitDeveloper
	PermitTester

	PermitMembers = PermitCreator | PermitDeveloper | PermitTester
)

// Allows reports whether any of the resolved roles is in the permit.
func (p Permit) Allows(r Roles) bool {
	return (p&PermitCreator != 0 && r.Creator) ||
		(p&PermitDeveloper != 0 && r.Developer) ||
		(p&PermitTester != 0 && r.Tester)
}

// Hint names the permitted roles without saying who holds them.
func (p Permit) Hint() string {
	var parts []string
	if p&PermitCreator != 0 {
		parts = append(parts, "создатель проекта")
	}
	if p&PermitDeveloper != 0 {
		parts = append(parts, "разработчик")
	}
	if p&PermitTester != 0 {
		parts = append(parts, "тестировщик")
	}
	return strings.Join(parts, " или ")
}
