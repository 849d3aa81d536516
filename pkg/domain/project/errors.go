package project

import "errors"

// Domain errors for project management.
var (
	// ErrNoProject indicates the chat has no project.
	ErrNoProject = errors.New("no project in this chat")

	// ErrProjectExists indicates the chat already hosts a project.
	ErrProjectExists = errors.New("project already exists in this chat")

	// ErrInvalidHandle indicates a roster entry is not a usable @handle.
	ErrInvalidHandle = errors.New("invalid user handle")
)
