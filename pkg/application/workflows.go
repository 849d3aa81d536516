package application

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/cardflow/pkg/domain/messaging"
	"github.com/felixgeelhaar/cardflow/pkg/domain/team"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

// Commands understood by the bot.
const (
	CommandNewProject = "newProject"
	CommandTeam       = "team"
	CommandAddTask    = "addTask"
	CommandCancel     = "cancel"
)

// Workflows routes decoded updates to the services.
type Workflows struct {
	env       *Env
	Projects  *ProjectService
	Tasks     *TaskService
	Lifecycle *LifecycleService
	Spawn     *SpawnService
}

// NewWorkflows builds every service over one shared environment.
func NewWorkflows(env *Env) *Workflows {
	env.init()
	projects := NewProjectService(env)
	spawn := NewSpawnService(env)
	return &Workflows{
		env:       env,
		Projects:  projects,
		Tasks:     NewTaskService(env, projects),
		Lifecycle: NewLifecycleService(env, projects, spawn),
		Spawn:     spawn,
	}
}

// Env returns the shared environment.
func (w *Workflows) Env() *Env {
	return w.env
}

// Command handles a slash command. Unknown commands are ignored.
func (w *Workflows) Command(ctx context.Context, u messaging.Update) error {
	a := ActorFrom(u.From)
	switch u.Command {
	case CommandNewProject:
		return w.Projects.Begin(ctx, u.ChatID, u.MessageID, a)
	case CommandTeam:
		return w.Projects.ShowTeam(ctx, u.ChatID, u.MessageID, a)
	case CommandAddTask:
		return w.Tasks.Begin(ctx, u.ChatID, u.MessageID, a)
	case CommandCancel:
		w.env.discard(ctx, u.ChatID, u.MessageID)
		if sess, ok := w.env.Sessions.Finish(SessionKey{ChatID: u.ChatID, UserID: a.UserID}); ok {
			w.env.clearPrompts(ctx, sess)
		}
	}
	return nil
}

// Callback handles a button press and returns the note to acknowledge it with.
func (w *Workflows) Callback(ctx context.Context, u messaging.Update) (string, error) {
	cb, err := ParseCallback(u.Data)
	if err != nil {
		return "", err
	}
	a := ActorFrom(u.From)

	switch cb.Scope {
	case ScopeItem:
		return w.itemCallback(ctx, u, a, cb)

	case ScopeProject:
		switch cb.Action {
		case ProjectConfirm:
			return "Проект подтверждён", w.Projects.Confirm(ctx, u.ChatID, a)
		case ProjectEdit:
			return "", w.Projects.BeginEdit(ctx, u.ChatID, a)
		case ProjectDelete:
			return "Проект удалён", w.Projects.Delete(ctx, u.ChatID, a)
		}

	case ScopeTeam:
		if cb.Action == TeamClose {
			return "", w.Projects.CloseTeam(ctx, u.ChatID, u.MessageID, a)
		}
		if role, ok := PickRole(cb.Action); ok {
			return "", w.Projects.BeginAddMember(ctx, u.ChatID, a, role)
		}

	case ScopePick:
		if role, ok := PickRole(cb.Action); ok {
			h := team.NormalizeHandle(cb.Arg)
			return fmt.Sprintf("%s выбран", h), w.Tasks.Pick(ctx, u.ChatID, a, role, h)
		}

	case ScopeSpawn:
		kind, err := workitem.ParseKind(cb.Action)
		if err != nil {
			return "", err
		}
		return "", w.Spawn.ChooseKind(ctx, u.ChatID, a, kind)

	case ScopeSkip:
		return "Пропущено", w.image(ctx, u.ChatID, a, "")
	}
	return "", fmt.Errorf("unhandled callback %q", u.Data)
}

func (w *Workflows) itemCallback(ctx context.Context, u messaging.Update, a Actor, cb Callback) (string, error) {
	stage, err := workitem.ParseStage(cb.Arg)
	if err != nil {
		return "", err
	}
	req := TransitionRequest{
		ChatID:    u.ChatID,
		MessageID: u.MessageID,
		Actor:     a,
		Action:    workitem.Action(cb.Action),
		Expected:  stage,
	}

	switch req.Action {
	case workitem.ActionComment:
		return "", w.Lifecycle.BeginComment(ctx, req)
	case workitem.ActionEdit:
		return "", w.Lifecycle.BeginEdit(ctx, req)
	case workitem.ActionDelete:
		return "Таск удалён.", w.Lifecycle.Delete(ctx, req)
	}

	item, err := w.Lifecycle.Transition(ctx, req)
	if err != nil {
		return "", err
	}
	return Notice(item, req.Action), nil
}

// Text feeds a plain message to the sender's open prompt. Messages outside
// a prompt are ordinary chat and are ignored.
func (w *Workflows) Text(ctx context.Context, u messaging.Update) error {
	a := ActorFrom(u.From)
	sess, ok := w.env.Sessions.Get(SessionKey{ChatID: u.ChatID, UserID: a.UserID}, w.env.now())
	if !ok {
		return nil
	}

	switch {
	case sess.Flow == FlowNewProject && (sess.Step == StepName || sess.Step == StepDescription),
		sess.Flow == FlowEditProject:
		w.env.discard(ctx, u.ChatID, u.MessageID)
		return w.Projects.Text(ctx, sess, u.Text)
	case sess.Flow == FlowTeamAdd:
		w.env.discard(ctx, u.ChatID, u.MessageID)
		return w.Projects.AddMember(ctx, sess, u.Text)
	case sess.Flow == FlowAddTask && sess.Step == StepDescription:
		w.env.discard(ctx, u.ChatID, u.MessageID)
		return w.Tasks.Describe(ctx, sess, u.Text)
	case sess.Flow == FlowEditTask:
		w.env.discard(ctx, u.ChatID, u.MessageID)
		return w.Lifecycle.Edit(ctx, sess, u.Text)
	case sess.Flow == FlowComment:
		w.env.discard(ctx, u.ChatID, u.MessageID)
		return w.Lifecycle.Comment(ctx, sess, u.Text)
	case sess.Flow == FlowSpawn && sess.Step == StepDescription:
		w.env.discard(ctx, u.ChatID, u.MessageID)
		_, err := w.Spawn.Describe(ctx, sess, u.Text)
		return err
	}
	return nil
}

// Photo feeds an image to the sender's open prompt, if it asked for one.
func (w *Workflows) Photo(ctx context.Context, u messaging.Update) error {
	a := ActorFrom(u.From)
	sess, ok := w.env.Sessions.Get(SessionKey{ChatID: u.ChatID, UserID: a.UserID}, w.env.now())
	if !ok || sess.Step != StepImage {
		return nil
	}
	w.env.discard(ctx, u.ChatID, u.MessageID)
	return w.image(ctx, u.ChatID, a, u.PhotoID)
}

func (w *Workflows) image(ctx context.Context, chatID int64, a Actor, photoID string) error {
	sess, ok := w.env.Sessions.Get(SessionKey{ChatID: chatID, UserID: a.UserID}, w.env.now())
	if !ok || sess.Step != StepImage {
		return ErrNoSession
	}
	switch sess.Flow {
	case FlowNewProject:
		return w.Projects.Image(ctx, sess, photoID)
	case FlowAddTask:
		_, err := w.Tasks.Finalize(ctx, sess, photoID)
		return err
	case FlowSpawn:
		return w.Spawn.Image(ctx, sess, photoID)
	}
	return ErrNoSession
}
