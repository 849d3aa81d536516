package application

import (
	"sync"
	"time"

	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an unanswered prompt stays open.
const DefaultSessionTTL = 30 * time.Minute

// Flow names a multi-step interaction.
type Flow string

const (
	FlowNewProject  Flow = "new_project"
	FlowEditProject Flow = "edit_project"
	FlowTeamAdd     Flow = "team_add"
	FlowAddTask     Flow = "add_task"
	FlowEditTask    Flow = "edit_task"
	FlowComment     Flow = "comment"
	FlowSpawn       Flow = "spawn"
)

// Step is the input a session waits for.
type Step string

const (
	StepName          Step = "name"
	StepDescription   Step = "description"
	StepImage         Step = "image"
	StepHandle        Step = "handle"
	StepPickDeveloper Step = "pick_developer"
	StepPickTester    Step = "pick_tester"
	StepKind          Step = "kind"
	StepText          Step = "text"
)

// SessionKey scopes a session to one user in one chat.
type SessionKey struct {
	ChatID int64
	UserID int64
}

// Session carries the values collected so far by a multi-step interaction.
type Session struct {
	ID      string
	Key     SessionKey
	Flow    Flow
	Step    Step
	Actor   team.Handle
	Started time.Time
	Expires time.Time

	Name        string
	Description string
	PhotoID     string
	Role        project.Role
	Kind        workitem.Kind
	Assignment  team.Assignment

	// Target is the card message the session acts on, if any.
	Target int64
	// Prompts are bot messages to delete when the session moves on or ends.
	Prompts []int64
}

// SessionStore holds at most one open session per (chat, user).
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[SessionKey]*Session
}

// NewSessionStore creates a store. A non-positive ttl uses DefaultSessionTTL.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{ttl: ttl, sessions: make(map[SessionKey]*Session)}
}

// TTL returns the idle timeout.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Start opens a session, replacing any open one for the key. The replaced
// session is returned so its prompts can be cleaned up.
func (s *SessionStore) Start(key SessionKey, flow Flow, step Step, actor team.Handle, now time.Time) (*Session, *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := s.sessions[key]
	sess := &Session{
		ID:      uuid.New().String(),
		Key:     key,
		Flow:    flow,
		Step:    step,
		Actor:   actor,
		Started: now,
		Expires: now.Add(s.ttl),
	}
	s.sessions[key] = sess
	return sess, replaced
}

// Get returns the open session for key and extends its deadline.
// Expired sessions are left for Sweep.
func (s *SessionStore) Get(key SessionKey, now time.Time) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok || !now.Before(sess.Expires) {
		return nil, false
	}
	sess.Expires = now.Add(s.ttl)
	return sess, true
}

// Finish closes the session for key.
func (s *SessionStore) Finish(key SessionKey) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	delete(s.sessions, key)
	return sess, ok
}

// Sweep removes and returns every expired session.
func (s *SessionStore) Sweep(now time.Time) []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []*Session
	for key, sess := range s.sessions {
		if !now.Before(sess.Expires) {
			expired = append(expired, sess)
			delete(s.sessions, key)
		}
	}
	return expired
}

// Len returns the number of sessions, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
