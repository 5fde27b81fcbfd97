package tools

import (
	"errors"
	"fmt"
)

// UnsupportedEnvironmentError reports a required tool missing from the
// host: awk unconditionally, jq only when the plan parses json.
type UnsupportedEnvironmentError struct {
	Tool    string
	Message string
}

func (e *UnsupportedEnvironmentError) Error() string {
	return fmt.Sprintf("unsupported environment: %s: %s", e.Tool, e.Message)
}

// NewUnsupportedEnvironment builds the error for a missing tool.
func NewUnsupportedEnvironment(tool, format string, args ...any) *UnsupportedEnvironmentError {
	return &UnsupportedEnvironmentError{Tool: tool, Message: fmt.Sprintf(format, args...)}
}

// IsUnsupportedEnvironment reports whether err is (or wraps) an
// UnsupportedEnvironmentError.
func IsUnsupportedEnvironment(err error) bool {
	var ue *UnsupportedEnvironmentError
	return errors.As(err, &ue)
}
