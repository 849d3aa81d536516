package application

import (
	"context"
	"slices"
	"strings"

	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

const (
	promptPickDeveloper = "Выберите разработчика:"
	promptPickTester    = "Выберите тестировщика:"
	promptTaskDesc      = "Введите описание (ТЗ):"
	promptTaskImage     = "Отправьте фото для задачи или 'Пропустить':"
)

// TaskService runs the /addTask wizard.
type TaskService struct {
	env      *Env
	projects *ProjectService
}

func NewTaskService(env *Env, projects *ProjectService) *TaskService {
	env.init()
	return &TaskService{env: env, projects: projects}
}

// Begin handles /addTask. Assignees are picked automatically when the roster
// has zero or one candidate, otherwise the creator picks from a list.
func (s *TaskService) Begin(ctx context.Context, chatID, commandID int64, a Actor) error {
	s.env.discard(ctx, chatID, commandID)
	p := s.env.project(chatID)
	if p == nil {
		return project.ErrNoProject
	}
	if !team.IsCreator(a.Handle, p) {
		return creatorOnly("addTask")
	}

	sess := s.env.startSession(ctx, chatID, a, FlowAddTask, StepPickDeveloper)
	return s.advance(ctx, sess, p)
}

// Pick records a developer or tester chosen from the picker.
func (s *TaskService) Pick(ctx context.Context, chatID int64, a Actor, role project.Role, h team.Handle) error {
	sess, err := s.env.session(chatID, a, FlowAddTask)
	if err != nil {
		return err
	}
	p := s.env.project(chatID)
	if p == nil {
		s.env.finish(ctx, sess)
		return project.ErrNoProject
	}
	if !slices.Contains(p.Members(role), h) {
		return project.ErrInvalidHandle
	}

	switch {
	case role == project.RoleDeveloper && sess.Step == StepPickDeveloper:
		sess.Assignment.Developer = h
		sess.Step = StepPickTester
	case role == project.RoleTester && sess.Step == StepPickTester:
		sess.Assignment.Tester = h
		sess.Step = StepDescription
	default:
		return ErrNoSession
	}
	s.env.clearPrompts(ctx, sess)
	return s.advance(ctx, sess, p)
}

// advance fills every step that needs no input and prompts for the next one.
func (s *TaskService) advance(ctx context.Context, sess *Session, p *project.Project) error {
	if sess.Step == StepPickDeveloper {
		h, ok := autoPick(p.Developers, team.NoDeveloper)
		if !ok {
			return s.env.prompt(ctx, sess, promptPickDeveloper, PickKeyboard(project.RoleDeveloper, p.Developers))
		}
		sess.Assignment.Developer = h
		sess.Step = StepPickTester
	}
	if sess.Step == StepPickTester {
		h, ok := autoPick(p.Testers, team.NoTester)
		if !ok {
			return s.env.prompt(ctx, sess, promptPickTester, PickKeyboard(project.RoleTester, p.Testers))
		}
		sess.Assignment.Tester = h
		sess.Step = StepDescription
	}
	return s.env.prompt(ctx, sess, promptTaskDesc, nil)
}

func autoPick(roster []team.Handle, placeholder team.Handle) (team.Handle, bool) {
	switch len(roster) {
	case 0:
		return placeholder, true
	case 1:
		return roster[0], true
	}
	return "", false
}

// Describe records the description and asks for an optional photo.
func (s *TaskService) Describe(ctx context.Context, sess *Session, text string) error {
	if sess.Flow != FlowAddTask || sess.Step != StepDescription {
		return ErrNoSession
	}
	sess.Description = strings.TrimSpace(text)
	sess.Step = StepImage
	s.env.clearPrompts(ctx, sess)
	return s.env.prompt(ctx, sess, promptTaskImage, SkipKeyboard())
}

// Finalize creates the task at stage new and posts its card. An empty
// photoID means the photo was skipped.
func (s *TaskService) Finalize(ctx context.Context, sess *Session, photoID string) (*workitem.WorkItem, error) {
	if sess.Flow != FlowAddTask || sess.Step != StepImage {
		return nil, ErrNoSession
	}
	s.env.finish(ctx, sess)

	unlock := s.env.Items.Lock(sess.Key.ChatID)
	defer unlock()

	item := workitem.New(workitem.KindTask, s.env.Items.NextSeq(workitem.KindTask), sess.Key.ChatID, sess.Description, sess.Assignment, s.env.now())
	msgID, err := messaging.SendCard(ctx, s.env.Gateway, item.ChatID, photoID, item.DisplayText(), CardKeyboard(item.Kind, item.Stage))
	if err != nil {
		return nil, &workitem.GatewayError{Op: "send card", Err: err}
	}
	item.Card = workitem.CardRef{MessageID: msgID, PhotoID: photoID}
	if err := s.env.Items.Append(item); err != nil {
		s.env.discard(ctx, item.ChatID, msgID)
		return nil, err
	}

	s.env.Logger.Info("task created", "item", item.ID(), "chat_id", item.ChatID,
		"developer", item.Assignment.Developer, "tester", item.Assignment.Tester)
	ev := s.env.itemEvent(events.TypeItemCreated, Actor{UserID: sess.Key.UserID, Handle: sess.Actor}, item)
	ev.Text = item.Description
	s.env.publish(ctx, ev)

	if err := s.projects.RefreshCard(ctx, item.ChatID); err != nil {
		s.env.Logger.Warn("project card refresh failed", "chat_id", item.ChatID, "error", err)
	}
	return item, nil
}
