package execute

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ExecutionError reports a failure to run a compiled command: spawn
// errors, cancellation, or broken output plumbing. It is never produced
// by the compiler itself.
type ExecutionError struct {
	RunID   uuid.UUID
	Command string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution %s failed: %s", e.RunID, e.Message)
}

// NewExecutionError builds an ExecutionError.
func NewExecutionError(runID uuid.UUID, command, format string, args ...any) *ExecutionError {
	return &ExecutionError{RunID: runID, Command: command, Message: fmt.Sprintf(format, args...)}
}

// IsExecutionError reports whether err is (or wraps) an ExecutionError.
func IsExecutionError(err error) bool {
	var ee *ExecutionError
	return errors.As(err, &ee)
}
