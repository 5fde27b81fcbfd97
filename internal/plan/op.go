package plan

import "fmt"

// Op is a filter operator. Comparison operators apply to named columns;
// the string-matching operators double as LineFilter kinds.
type Op string

const (
	OpEq Op = "eq"
	OpNe Op = "ne"
	OpLt Op = "lt"
	OpLe Op = "le"
	OpGt Op = "gt"
	OpGe Op = "ge"

	OpContains   Op = "contains"
	OpRegex      Op = "regex"
	OpStartsWith Op = "startswith"
	OpEndsWith   Op = "endswith"
)

// ParseOp resolves an operator name, accepting the lte/gte aliases.
func ParseOp(name string) (Op, error) {
	switch name {
	case "eq", "ne", "lt", "gt", "contains", "regex", "startswith", "endswith":
		return Op(name), nil
	case "le", "lte":
		return OpLe, nil
	case "ge", "gte":
		return OpGe, nil
	default:
		return "", fmt.Errorf("unknown filter operator %q", name)
	}
}

// IsComparison reports whether the operator is one of the six ordered
// comparisons.
func (o Op) IsComparison() bool {
	switch o {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// IsStringMatch reports whether the operator is a string-matching
// predicate, the only kinds valid on the line pseudo-column.
func (o Op) IsStringMatch() bool {
	switch o {
	case OpContains, OpRegex, OpStartsWith, OpEndsWith:
		return true
	}
	return false
}

// lineMatch converts a string-matching operator to a LineFilter kind.
func (o Op) lineMatch() (LineMatch, bool) {
	if !o.IsStringMatch() {
		return "", false
	}
	return LineMatch(o), true
}
