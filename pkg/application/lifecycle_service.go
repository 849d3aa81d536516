package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

const (
	promptComment       = "Введите комментарий:"
	promptRepairComment = "Введите комментарий для Глюка/Правки:"
	promptEditTask      = "Введите новое описание (ТЗ):"
)

// TransitionRequest is a button press on an item card.
type TransitionRequest struct {
	ChatID    int64
	MessageID int64
	Actor     Actor
	Action    workitem.Action
	// Expected is the stage the pressed button was rendered for.
	Expected workitem.Stage
}

// LifecycleService applies card actions: stage transitions, comments, edits and deletes.
type LifecycleService struct {
	env      *Env
	projects *ProjectService
	spawn    *SpawnService
}

func NewLifecycleService(env *Env, projects *ProjectService, spawn *SpawnService) *LifecycleService {
	env.init()
	return &LifecycleService{env: env, projects: projects, spawn: spawn}
}

// Transition moves an item one step through its lifecycle. The card is edited
// before the item is changed; a failed edit leaves the item untouched.
// Reject presses open the spawn flow instead and return the unchanged item.
func (s *LifecycleService) Transition(ctx context.Context, req TransitionRequest) (*workitem.WorkItem, error) {
	unlock := s.env.Items.Lock(req.ChatID)
	defer unlock()

	item, err := s.env.Items.Find(req.ChatID, req.MessageID)
	if err != nil {
		return nil, err
	}
	roles, creator := s.env.roles(req.Actor, item)

	t, err := item.Plan(req.Action, req.Expected, roles, creator, s.env.now())
	if err != nil {
		return nil, err
	}
	if t.Rule.Spawns {
		if err := s.spawn.Begin(ctx, req.Actor, item); err != nil {
			return nil, err
		}
		return item, nil
	}

	text := item.Preview(t)
	if err := messaging.UpdateCard(ctx, s.env.Gateway, item.ChatID, item.Card.MessageID, item.Card.HasPhoto(), text, CardKeyboard(item.Kind, t.Rule.To)); err != nil {
		s.env.Logger.Error("card update failed, transition not applied",
			"item", item.ID(), "action", req.Action, "error", err)
		return nil, &workitem.GatewayError{Op: "update card", Err: err}
	}
	if err := item.Apply(t); err != nil {
		return nil, err
	}

	s.env.Logger.Info("item transitioned",
		"item", item.ID(), "chat_id", item.ChatID, "from", t.Rule.From, "to", t.Rule.To, "actor", req.Actor.Handle)
	ev := s.env.itemEvent(events.TypeItemTransitioned, req.Actor, item)
	ev.From = string(t.Rule.From)
	ev.Text = t.StampLine
	s.env.publish(ctx, ev)

	if item.Kind.OnProjectCard() {
		if err := s.projects.RefreshCard(ctx, item.ChatID); err != nil {
			s.env.Logger.Warn("project card refresh failed", "chat_id", item.ChatID, "error", err)
		}
	}
	return item, nil
}

// Notice is the acknowledgement shown to the actor after a successful press.
func Notice(item *workitem.WorkItem, action workitem.Action) string {
	if action == workitem.ActionReject {
		return "Что создать: Глюк или Правка?"
	}
	return fmt.Sprintf("%s → %s", item.Label(), item.Stage.DisplayName())
}

// BeginComment opens a comment prompt for a card.
func (s *LifecycleService) BeginComment(ctx context.Context, req TransitionRequest) error {
	item, err := s.authorize(req, workitem.ActionComment)
	if err != nil {
		return err
	}
	sess := s.env.startSession(ctx, req.ChatID, req.Actor, FlowComment, StepText)
	sess.Target = item.Card.MessageID
	text := promptComment
	if item.Kind != workitem.KindTask {
		text = promptRepairComment
	}
	return s.env.prompt(ctx, sess, text, nil)
}

// Comment posts the typed comment as a reply to the card. The card text is
// left alone so it keeps matching the item's history.
func (s *LifecycleService) Comment(ctx context.Context, sess *Session, text string) error {
	s.env.finish(ctx, sess)
	item, err := s.env.Items.Find(sess.Key.ChatID, sess.Target)
	if err != nil {
		return err
	}

	body := fmt.Sprintf("Комментарий(%s): %s", sess.Actor, strings.TrimSpace(text))
	if _, err := s.env.Gateway.Reply(ctx, item.ChatID, item.Card.MessageID, body); err != nil {
		return &workitem.GatewayError{Op: "post comment", Err: err}
	}
	ev := s.env.itemEvent(events.TypeItemCommented, Actor{Handle: sess.Actor}, item)
	ev.Text = text
	s.env.publish(ctx, ev)
	return nil
}

// BeginEdit asks the creator for a new task description.
func (s *LifecycleService) BeginEdit(ctx context.Context, req TransitionRequest) error {
	item, err := s.authorize(req, workitem.ActionEdit)
	if err != nil {
		return err
	}
	sess := s.env.startSession(ctx, req.ChatID, req.Actor, FlowEditTask, StepDescription)
	sess.Target = item.Card.MessageID
	return s.env.prompt(ctx, sess, promptEditTask, nil)
}

// Edit replaces the description of the session's target card.
func (s *LifecycleService) Edit(ctx context.Context, sess *Session, text string) error {
	s.env.finish(ctx, sess)

	unlock := s.env.Items.Lock(sess.Key.ChatID)
	defer unlock()

	item, err := s.env.Items.Find(sess.Key.ChatID, sess.Target)
	if err != nil {
		return err
	}
	actor := Actor{UserID: sess.Key.UserID, Handle: sess.Actor}
	roles, _ := s.env.roles(actor, item)
	if err := item.Authorize(workitem.ActionEdit, "", roles); err != nil {
		return err
	}

	description := strings.TrimSpace(text)
	rendered, err := item.PlanEdit(description)
	if err != nil {
		return err
	}
	if err := messaging.UpdateCard(ctx, s.env.Gateway, item.ChatID, item.Card.MessageID, item.Card.HasPhoto(), rendered, CardKeyboard(item.Kind, item.Stage)); err != nil {
		return &workitem.GatewayError{Op: "update card", Err: err}
	}
	item.CommitEdit(description)
	s.env.publish(ctx, s.env.itemEvent(events.TypeItemEdited, actor, item))

	if item.Kind.OnProjectCard() {
		return s.projects.RefreshCard(ctx, item.ChatID)
	}
	return nil
}

// Delete removes a task card and its registry entry. Creator only, stage new only.
func (s *LifecycleService) Delete(ctx context.Context, req TransitionRequest) error {
	unlock := s.env.Items.Lock(req.ChatID)
	defer unlock()

	item, err := s.env.Items.Find(req.ChatID, req.MessageID)
	if err != nil {
		return err
	}
	roles, _ := s.env.roles(req.Actor, item)
	if err := item.Authorize(workitem.ActionDelete, req.Expected, roles); err != nil {
		return err
	}
	if err := s.env.Gateway.DeleteMessage(ctx, item.ChatID, item.Card.MessageID); err != nil {
		return &workitem.GatewayError{Op: "delete card", Err: err}
	}
	if _, err := s.env.Items.Remove(item.ChatID, item.Card.MessageID); err != nil {
		return err
	}
	s.env.publish(ctx, s.env.itemEvent(events.TypeItemRemoved, req.Actor, item))

	if item.Kind.OnProjectCard() {
		return s.projects.RefreshCard(ctx, item.ChatID)
	}
	return nil
}

func (s *LifecycleService) authorize(req TransitionRequest, action workitem.Action) (*workitem.WorkItem, error) {
	item, err := s.env.Items.Find(req.ChatID, req.MessageID)
	if err != nil {
		return nil, err
	}
	roles, _ := s.env.roles(req.Actor, item)
	if err := item.Authorize(action, req.Expected, roles); err != nil {
		return nil, err
	}
	return item, nil
}
