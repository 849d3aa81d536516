package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/cardflow/internal/infrastructure/config"
	"github.com/felixgeelhaar/cardflow/pkg/storage"
)

// CLIError wraps errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known startup errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, config.ErrNoToken):
		return NewCLIError("no bot token configured",
			fmt.Sprintf("Export %s or set telegram.token in cardflow.yaml", config.EnvToken), err)
	case errors.Is(err, storage.ErrInvalidRoster):
		return NewCLIError("roster file rejected",
			"Every project needs a non-zero chat_id and a creator; see 'cardflow serve --help'", err)
	}

	return err
}
