package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/cardflow/pkg/domain/events"
	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

const promptSpawnKind = "Что создать: Глюк или Правка?"

func promptSpawnImage(kind workitem.Kind) string {
	return fmt.Sprintf("Отправьте картинку для %s или 'Пропустить':", genitive(kind))
}

func promptSpawnDescription(kind workitem.Kind) string {
	return fmt.Sprintf("Введите описание %s:", strings.ToLower(genitive(kind)))
}

func genitive(kind workitem.Kind) string {
	if kind == workitem.KindGlitch {
		return "Глюка"
	}
	return "Правки"
}

// SpawnService creates a glitch or fix from a rejected item. The new item
// inherits the rejected item's developer and tester.
type SpawnService struct {
	env *Env
}

func NewSpawnService(env *Env) *SpawnService {
	env.init()
	return &SpawnService{env: env}
}

// Begin asks the rejecting user which kind of item to create. The caller has
// already authorized the reject.
func (s *SpawnService) Begin(ctx context.Context, a Actor, origin *workitem.WorkItem) error {
	sess := s.env.startSession(ctx, origin.ChatID, a, FlowSpawn, StepKind)
	sess.Target = origin.Card.MessageID
	sess.Assignment = origin.Assignment
	if err := s.env.prompt(ctx, sess, promptSpawnKind, SpawnKeyboard()); err != nil {
		s.env.Sessions.Finish(sess.Key)
		return err
	}

	ev := s.env.itemEvent(events.TypeItemRejected, a, origin)
	ev.From = string(origin.Stage)
	s.env.publish(ctx, ev)
	return nil
}

// ChooseKind records the kind and asks for an optional image.
func (s *SpawnService) ChooseKind(ctx context.Context, chatID int64, a Actor, kind workitem.Kind) error {
	if kind != workitem.KindGlitch && kind != workitem.KindFix {
		return fmt.Errorf("cannot spawn %s", kind)
	}
	sess, err := s.env.session(chatID, a, FlowSpawn)
	if err != nil || sess.Step != StepKind {
		return ErrNoSession
	}
	sess.Kind = kind
	sess.Step = StepImage
	s.env.clearPrompts(ctx, sess)
	return s.env.prompt(ctx, sess, promptSpawnImage(kind), SkipKeyboard())
}

// Image records an image, or none when photoID is empty, and asks for the description.
func (s *SpawnService) Image(ctx context.Context, sess *Session, photoID string) error {
	if sess.Flow != FlowSpawn || sess.Step != StepImage {
		return ErrNoSession
	}
	sess.PhotoID = photoID
	sess.Step = StepDescription
	s.env.clearPrompts(ctx, sess)
	return s.env.prompt(ctx, sess, promptSpawnDescription(sess.Kind), nil)
}

// Describe creates the new item at its initial stage and posts its card.
func (s *SpawnService) Describe(ctx context.Context, sess *Session, text string) (*workitem.WorkItem, error) {
	if sess.Flow != FlowSpawn || sess.Step != StepDescription {
		return nil, ErrNoSession
	}
	s.env.finish(ctx, sess)

	unlock := s.env.Items.Lock(sess.Key.ChatID)
	defer unlock()

	kind := sess.Kind
	item := workitem.New(kind, s.env.Items.NextSeq(kind), sess.Key.ChatID, strings.TrimSpace(text), sess.Assignment, s.env.now())
	msgID, err := messaging.SendCard(ctx, s.env.Gateway, item.ChatID, sess.PhotoID, item.DisplayText(), CardKeyboard(kind, item.Stage))
	if err != nil {
		return nil, &workitem.GatewayError{Op: "send card", Err: err}
	}
	item.Card = workitem.CardRef{MessageID: msgID, PhotoID: sess.PhotoID}
	if err := s.env.Items.Append(item); err != nil {
		s.env.discard(ctx, item.ChatID, msgID)
		return nil, err
	}

	s.env.Logger.Info("item spawned", "item", item.ID(), "chat_id", item.ChatID, "origin_message", sess.Target)
	ev := s.env.itemEvent(events.TypeItemCreated, Actor{UserID: sess.Key.UserID, Handle: sess.Actor}, item)
	ev.Text = item.Description
	s.env.publish(ctx, ev)
	return item, nil
}
