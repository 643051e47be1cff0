package core

import (
	"errors"
	"fmt"
)

// ErrAgentsException is matched (errors.Is) by every error the runner raises on
// its own behalf, so callers can separate SDK failures from transport errors.
var ErrAgentsException = errors.New("agentkit error")

// MaxTurnsExceededError is returned when a run needs more model turns than allowed.
type MaxTurnsExceededError struct {
	MaxTurns int
}

func (e *MaxTurnsExceededError) Error() string {
	return fmt.Sprintf("max turns (%d) exceeded", e.MaxTurns)
}

// Is reports whether target is ErrAgentsException.
func (e *MaxTurnsExceededError) Is(target error) bool { return target == ErrAgentsException }

// ModelBehaviorError signals that the model did something unexpected, such as
// calling a tool that does not exist or returning malformed structured output.
type ModelBehaviorError struct {
	Message string
	Err     error
}

// NewModelBehaviorError formats a ModelBehaviorError.
func NewModelBehaviorError(format string, args ...any) *ModelBehaviorError {
	return &ModelBehaviorError{Message: fmt.Sprintf(format, args...)}
}

func (e *ModelBehaviorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model behavior error: %s: %v", e.Message, e.Err)
	}
	return "model behavior error: " + e.Message
}

// Unwrap returns the underlying cause.
func (e *ModelBehaviorError) Unwrap() error { return e.Err }

// Is reports whether target is ErrAgentsException.
func (e *ModelBehaviorError) Is(target error) bool { return target == ErrAgentsException }

// UserError signals a misconfiguration by the caller (no model, bad input type, ...).
type UserError struct {
	Message string
}

// NewUserError formats a UserError.
func NewUserError(format string, args ...any) *UserError {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

func (e *UserError) Error() string { return "user error: " + e.Message }

// Is reports whether target is ErrAgentsException.
func (e *UserError) Is(target error) bool { return target == ErrAgentsException }
