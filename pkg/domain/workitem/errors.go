package workitem

import (
	"errors"
	"fmt"
)

// Domain errors for card operations.
var (
	// ErrItemNotFound indicates the hosting message is not tracked.
	ErrItemNotFound = errors.New("work item not found")

	// ErrUnauthorized indicates the actor's role does not permit the action.
	ErrUnauthorized = errors.New("not authorized")

	// ErrInvalidTransition indicates the action does not apply to the current stage.
	ErrInvalidTransition = errors.New("invalid stage transition")

	// ErrGatewayFailure indicates the card could not be updated on the chat platform.
	ErrGatewayFailure = errors.New("messaging gateway failure")
)

// TransitionError provides details about a rejected transition.
type TransitionError struct {
	Item     string
	From     Stage
	Action   Action
	Expected Stage
}

func (e *TransitionError) Error() string {
	if e.Expected != "" && e.Expected != e.From {
		return fmt.Sprintf("cannot %s %s: button was for stage %s, item is at %s", e.Action, e.Item, e.Expected, e.From)
	}
	return fmt.Sprintf("cannot %s %s from stage %s", e.Action, e.Item, e.From)
}

// Is allows errors.Is to work with TransitionError.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// AuthorizationError carries a generic hint about which roles may act.
type AuthorizationError struct {
	Action Action
	Hint   string
}

func (e *AuthorizationError) Error() string {
	if e.Hint == "" {
		return fmt.Sprintf("%s: not authorized", e.Action)
	}
	return fmt.Sprintf("%s: only %s may do this", e.Action, e.Hint)
}

// Is allows errors.Is to work with AuthorizationError.
func (e *AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// GatewayError wraps a failed platform call.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Is allows errors.Is to work with GatewayError.
func (e *GatewayError) Is(target error) bool {
	return target == ErrGatewayFailure
}
