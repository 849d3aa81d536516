package bot

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/cardflow/pkg/application"
	"github.com/felixgeelhaar/cardflow/pkg/domain/project"
	"github.com/felixgeelhaar/cardflow/pkg/domain/workitem"
)

// Notice wraps an error with the text shown to the user who caused it.
type Notice struct {
	Text  string
	Alert bool
	Err   error
	// Internal marks failures that are logged as errors rather than user mistakes.
	Internal bool
}

func (n *Notice) Error() string {
	if n.Err != nil {
		return fmt.Sprintf("%s: %v", n.Text, n.Err)
	}
	return n.Text
}

func (n *Notice) Unwrap() error {
	return n.Err
}

// NewNotice creates a non-alert notice.
func NewNotice(text string, err error) *Notice {
	return &Notice{Text: text, Err: err}
}

// Generic failure text, shown when the platform or the bot itself failed.
const failureText = "Не удалось выполнить действие, попробуйте ещё раз."

// MapError converts known errors into Notices. Unmapped errors become an
// internal failure notice.
func MapError(err error) *Notice {
	if err == nil {
		return nil
	}

	var n *Notice
	if errors.As(err, &n) {
		return n
	}

	var authErr *workitem.AuthorizationError
	if errors.As(err, &authErr) {
		text := "⛔ Недостаточно прав."
		if authErr.Hint != "" {
			text = fmt.Sprintf("⛔ Это может сделать только %s.", authErr.Hint)
		}
		return &Notice{Text: text, Alert: true, Err: err}
	}

	switch {
	case errors.Is(err, workitem.ErrUnauthorized):
		return &Notice{Text: "⛔ Недостаточно прав.", Alert: true, Err: err}
	case errors.Is(err, workitem.ErrInvalidTransition):
		return NewNotice("Карточка уже изменилась, действие неактуально.", err)
	case errors.Is(err, workitem.ErrItemNotFound):
		return NewNotice("Карточка не найдена.", err)
	case errors.Is(err, project.ErrNoProject):
		return NewNotice("В этом чате нет проекта.", err)
	case errors.Is(err, project.ErrProjectExists):
		return NewNotice("В этом чате уже есть проект.", err)
	case errors.Is(err, project.ErrInvalidHandle):
		return NewNotice("Нужен корректный @username участника команды.", err)
	case errors.Is(err, application.ErrNoSession):
		return NewNotice("Нет активного действия.", err)
	case errors.Is(err, workitem.ErrGatewayFailure):
		return &Notice{Text: failureText, Err: err, Internal: true}
	}

	return &Notice{Text: failureText, Err: err, Internal: true}
}
