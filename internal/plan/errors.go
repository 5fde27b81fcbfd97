package plan

import (
	"errors"
	"fmt"
)

// PlanErrorCode categorizes invariant violations.
type PlanErrorCode string

const (
	// ErrCodeStructure indicates a malformed chain (missing Source, Agg
	// without GroupBy, GroupBy without Agg).
	ErrCodeStructure PlanErrorCode = "PLAN_STRUCTURE"

	// ErrCodeMissingParse indicates a field-aware node with no Parse
	// upstream, or a header-requiring reference without has_header.
	ErrCodeMissingParse PlanErrorCode = "PLAN_MISSING_PARSE"

	// ErrCodeBadOperand indicates an invalid operator, value, or count.
	ErrCodeBadOperand PlanErrorCode = "PLAN_BAD_OPERAND"

	// ErrCodeParallel indicates an illegal Parallel annotation.
	ErrCodeParallel PlanErrorCode = "PLAN_PARALLEL"

	// ErrCodeUnknownColumn indicates a reference to a column that is not
	// in scope where the emitted layout is known.
	ErrCodeUnknownColumn PlanErrorCode = "PLAN_UNKNOWN_COLUMN"

	// ErrCodeUnsupported indicates a shape the emitters cannot express.
	ErrCodeUnsupported PlanErrorCode = "PLAN_UNSUPPORTED"
)

// PlanError is an invariant violation detected at build or compile time.
// Messages name the offending node and the violated rule; they never dump
// the whole plan.
type PlanError struct {
	Code    PlanErrorCode
	Node    string // node kind, e.g. "group_by"
	Message string
}

func (e *PlanError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s node: %s", e.Code, e.Node, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewPlanError builds a PlanError for the given node kind.
func NewPlanError(code PlanErrorCode, node, format string, args ...any) *PlanError {
	return &PlanError{Code: code, Node: node, Message: fmt.Sprintf(format, args...)}
}

// IsPlanError reports whether err is (or wraps) a PlanError.
func IsPlanError(err error) bool {
	var pe *PlanError
	return errors.As(err, &pe)
}
