package shellspark

import (
	"github.com/roach88/shellspark/internal/emit"
	"github.com/roach88/shellspark/internal/execute"
	"github.com/roach88/shellspark/internal/plan"
	"github.com/roach88/shellspark/internal/tools"
)

// IsPlanError reports whether err is an invariant violation detected at
// build or compile time: Agg without GroupBy, Parallel next to a
// global-state operator, a malformed filter keyword, or a reference to a
// column that is out of scope.
func IsPlanError(err error) bool { return plan.IsPlanError(err) }

// IsUnsupportedEnvironment reports whether err means a required tool is
// missing from the host: awk unconditionally, jq when json parsing is
// requested.
func IsUnsupportedEnvironment(err error) bool { return tools.IsUnsupportedEnvironment(err) }

// IsQuotingError reports whether err is an internal escape-discipline
// assertion failure. Seeing one indicates a compiler bug.
func IsQuotingError(err error) bool { return emit.IsQuotingError(err) }

// IsExecutionError reports whether err came from running a compiled
// pipeline rather than from compiling it.
func IsExecutionError(err error) bool { return execute.IsExecutionError(err) }
