package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

// Prompts and notices shown by the project flows.
const (
	promptProjectName        = "Введите название проекта:"
	promptProjectDescription = "Введите описание проекта:"
	promptProjectImage       = "Отправьте картинку или 'Пропустить':"
	promptNewProjectDesc     = "Введите новое описание проекта:"
	promptDeveloperHandle    = "Введите @username разработчика:"
	promptTesterHandle       = "Введите @username тестировщика:"
	textTeamMenu             = "Управление командой:"
)

// ProjectService owns the pinned project card: the creation wizard, roster
// management and the card refresh that lists the chat's tasks.
type ProjectService struct {
	env *Env
}

func NewProjectService(env *Env) *ProjectService {
	env.init()
	return &ProjectService{env: env}
}

// Begin handles /newProject: it posts and pins an empty card and asks for a name.
func (s *ProjectService) Begin(ctx context.Context, chatID, commandID int64, a Actor) error {
	s.env.discard(ctx, chatID, commandID)
	if s.env.project(chatID) != nil {
		return project.ErrProjectExists
	}
	if !a.Handle.IsAssignable() {
		return fmt.Errorf("%w: a username is required to own a project", project.ErrInvalidHandle)
	}

	p := project.New(chatID, a.Handle, s.env.now())
	if err := s.postCard(ctx, p, nil); err != nil {
		return err
	}
	s.env.Projects.Save(p)
	s.env.publish(ctx, events.New(events.TypeProjectCreated, chatID, a.Handle.String(), s.env.now()))

	sess := s.env.startSession(ctx, chatID, a, FlowNewProject, StepName)
	return s.env.prompt(ctx, sess, promptProjectName, nil)
}

// Text consumes a wizard answer: the name, the description, or a new description.
func (s *ProjectService) Text(ctx context.Context, sess *Session, text string) error {
	p := s.env.project(sess.Key.ChatID)
	if p == nil {
		s.env.finish(ctx, sess)
		return project.ErrNoProject
	}
	text = strings.TrimSpace(text)

	switch {
	case sess.Flow == FlowNewProject && sess.Step == StepName:
		p.Name = text
		sess.Step = StepDescription
		s.env.clearPrompts(ctx, sess)
		return s.env.prompt(ctx, sess, promptProjectDescription, nil)

	case sess.Flow == FlowNewProject && sess.Step == StepDescription:
		p.Description = text
		sess.Step = StepImage
		s.env.clearPrompts(ctx, sess)
		return s.env.prompt(ctx, sess, promptProjectImage, SkipKeyboard())

	case sess.Flow == FlowEditProject:
		p.Description = text
		s.env.finish(ctx, sess)
		s.env.publish(ctx, events.New(events.TypeProjectUpdated, p.ChatID, sess.Actor.String(), s.env.now()))
		return s.RefreshCard(ctx, p.ChatID)
	}
	return nil
}

// Image finishes the wizard. An empty photoID means the image was skipped.
func (s *ProjectService) Image(ctx context.Context, sess *Session, photoID string) error {
	if sess.Flow != FlowNewProject || sess.Step != StepImage {
		return ErrNoSession
	}
	p := s.env.project(sess.Key.ChatID)
	s.env.finish(ctx, sess)
	if p == nil {
		return project.ErrNoProject
	}

	if photoID == "" {
		return s.RefreshCard(ctx, p.ChatID)
	}

	text := project.RenderCard(p, s.env.Items.List(p.ChatID), s.env.Location)
	if err := s.env.Gateway.EditMessagePhoto(ctx, p.ChatID, p.CardMessageID, photoID, text, ProjectKeyboard(p)); err != nil {
		return &workitem.GatewayError{Op: "set project image", Err: err}
	}
	p.ImageID = photoID
	p.Published = text
	return nil
}

// Confirm marks the project confirmed. Creator only.
func (s *ProjectService) Confirm(ctx context.Context, chatID int64, a Actor) error {
	p, err := s.owned(chatID, a, ProjectConfirm)
	if err != nil {
		return err
	}
	if p.Confirmed {
		return nil
	}
	p.Confirmed = true
	s.env.publish(ctx, events.New(events.TypeProjectUpdated, chatID, a.Handle.String(), s.env.now()))
	return s.RefreshCard(ctx, chatID)
}

// BeginEdit asks the creator for a new project description.
func (s *ProjectService) BeginEdit(ctx context.Context, chatID int64, a Actor) error {
	if _, err := s.owned(chatID, a, ProjectEdit); err != nil {
		return err
	}
	sess := s.env.startSession(ctx, chatID, a, FlowEditProject, StepDescription)
	return s.env.prompt(ctx, sess, promptNewProjectDesc, nil)
}

// Delete removes the project and its card. Item cards stay in the chat.
func (s *ProjectService) Delete(ctx context.Context, chatID int64, a Actor) error {
	p, err := s.owned(chatID, a, ProjectDelete)
	if err != nil {
		return err
	}
	if err := s.env.Gateway.DeleteMessage(ctx, chatID, p.CardMessageID); err != nil {
		return &workitem.GatewayError{Op: "delete project card", Err: err}
	}
	s.env.Projects.Delete(chatID)
	s.env.publish(ctx, events.New(events.TypeProjectDeleted, chatID, a.Handle.String(), s.env.now()))
	return nil
}

// ShowTeam handles /team: the creator gets the roster menu.
func (s *ProjectService) ShowTeam(ctx context.Context, chatID, commandID int64, a Actor) error {
	s.env.discard(ctx, chatID, commandID)
	if _, err := s.owned(chatID, a, "team"); err != nil {
		return err
	}
	if _, err := s.env.Gateway.SendMessage(ctx, chatID, textTeamMenu, TeamKeyboard()); err != nil {
		return &workitem.GatewayError{Op: "send team menu", Err: err}
	}
	return nil
}

// BeginAddMember asks the creator for the handle of a new developer or tester.
func (s *ProjectService) BeginAddMember(ctx context.Context, chatID int64, a Actor, role project.Role) error {
	if _, err := s.owned(chatID, a, "team"); err != nil {
		return err
	}
	sess := s.env.startSession(ctx, chatID, a, FlowTeamAdd, StepHandle)
	sess.Role = role
	text := promptDeveloperHandle
	if role == project.RoleTester {
		text = promptTesterHandle
	}
	return s.env.prompt(ctx, sess, text, nil)
}

// AddMember consumes the handle typed for BeginAddMember.
func (s *ProjectService) AddMember(ctx context.Context, sess *Session, raw string) error {
	s.env.finish(ctx, sess)
	p := s.env.project(sess.Key.ChatID)
	if p == nil {
		return project.ErrNoProject
	}
	added, err := p.AddMember(sess.Role, team.NormalizeHandle(raw))
	if err != nil {
		return err
	}
	if !added {
		return nil
	}
	s.env.publish(ctx, events.New(events.TypeProjectUpdated, p.ChatID, sess.Actor.String(), s.env.now()))
	return s.RefreshCard(ctx, p.ChatID)
}

// CloseTeam removes the /team menu message.
func (s *ProjectService) CloseTeam(ctx context.Context, chatID, menuID int64, a Actor) error {
	if _, err := s.owned(chatID, a, "team"); err != nil {
		return err
	}
	s.env.discard(ctx, chatID, menuID)
	return nil
}

// Publish brings a chat's project card up to date, posting and pinning it
// first if the project was seeded without one.
func (s *ProjectService) Publish(ctx context.Context, chatID int64) error {
	p := s.env.project(chatID)
	if p == nil {
		return nil
	}
	if p.CardMessageID != 0 {
		return s.RefreshCard(ctx, chatID)
	}
	return s.postCard(ctx, p, ProjectKeyboard(p))
}

// postCard sends p's card and pins it.
func (s *ProjectService) postCard(ctx context.Context, p *project.Project, kb messaging.Keyboard) error {
	text := project.RenderCard(p, s.env.Items.List(p.ChatID), s.env.Location)
	msgID, err := messaging.SendCard(ctx, s.env.Gateway, p.ChatID, p.ImageID, text, kb)
	if err != nil {
		return &workitem.GatewayError{Op: "send project card", Err: err}
	}
	p.CardMessageID = msgID
	p.Published = text
	if err := s.env.Gateway.PinMessage(ctx, p.ChatID, msgID); err != nil {
		s.env.Logger.Warn("failed to pin project card", "chat_id", p.ChatID, "error", err)
	}
	return nil
}

// RefreshCard re-renders the project card from the directory and registry.
// Nothing is sent when the card already shows the same content.
func (s *ProjectService) RefreshCard(ctx context.Context, chatID int64) error {
	p := s.env.project(chatID)
	if p == nil || p.CardMessageID == 0 {
		return nil
	}
	text := project.RenderCard(p, s.env.Items.List(chatID), s.env.Location)
	if text == p.Published {
		return nil
	}
	if err := messaging.UpdateCard(ctx, s.env.Gateway, chatID, p.CardMessageID, p.ImageID != "", text, ProjectKeyboard(p)); err != nil {
		return &workitem.GatewayError{Op: "refresh project card", Err: err}
	}
	p.Published = text
	return nil
}

func (s *ProjectService) owned(chatID int64, a Actor, op string) (*project.Project, error) {
	p := s.env.project(chatID)
	if p == nil {
		return nil, project.ErrNoProject
	}
	if !team.IsCreator(a.Handle, p) {
		return nil, creatorOnly(op)
	}
	return p, nil
}
