package emit

import (
	"errors"
	"fmt"
)

// QuotingError reports a violation of the escape discipline. It should be
// unreachable; surfacing one indicates a compiler bug, not bad input.
type QuotingError struct {
	Value   string
	Message string
}

func (e *QuotingError) Error() string {
	return fmt.Sprintf("quoting assertion failed: %s", e.Message)
}

// IsQuotingError reports whether err is (or wraps) a QuotingError.
func IsQuotingError(err error) bool {
	var qe *QuotingError
	return errors.As(err, &qe)
}
