package plan

import (
	"fmt"
	"strconv"
	"strings"
)

// AggFunc is an aggregation function.
type AggFunc string

const (
	AggCount         AggFunc = "count"
	AggSum           AggFunc = "sum"
	AggAvg           AggFunc = "avg"
	AggMin           AggFunc = "min"
	AggMax           AggFunc = "max"
	AggFirst         AggFunc = "first"
	AggLast          AggFunc = "last"
	AggCountDistinct AggFunc = "countdistinct"
)

// ParseAggFunc resolves a function name, accepting the mean alias.
func ParseAggFunc(name string) (AggFunc, error) {
	switch name {
	case "count", "sum", "avg", "min", "max", "first", "last", "countdistinct":
		return AggFunc(name), nil
	case "mean":
		return AggAvg, nil
	default:
		return "", fmt.Errorf("unknown aggregation function %q", name)
	}
}

// AggItem is one output column of an Agg node: alias, the source column
// (or expression), and the function. Column is "*" only when Fn is count.
type AggItem struct {
	Alias  string
	Column string
	Fn     AggFunc
}

// AggExpr is the parsed form of an aggregation column. The column field of
// an AggItem admits a tiny arithmetic sub-language: a plain column name,
// `col op col`, or `col op const` with op one of + - * /. Anything richer
// is rejected at build time.
type AggExpr struct {
	Left       string
	Op         byte // 0 when the expression is a bare column
	Right      string
	RightConst bool
	RightVal   float64
}

// Columns lists the column names the expression references.
func (e AggExpr) Columns() []string {
	if e.Op == 0 {
		return []string{e.Left}
	}
	if e.RightConst {
		return []string{e.Left}
	}
	return []string{e.Left, e.Right}
}

// ParseAggExpr parses an aggregation column expression. The arithmetic
// form requires whitespace around the operator, so a header name that
// happens to contain `-` is still a bare column.
func ParseAggExpr(s string) (AggExpr, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return AggExpr{}, fmt.Errorf("empty aggregation column")
	}
	fields := strings.Fields(trimmed)
	switch len(fields) {
	case 1:
		return AggExpr{Left: fields[0]}, nil
	case 3:
		op := fields[1]
		if len(op) != 1 || !strings.ContainsAny(op, "+-*/") {
			return AggExpr{}, fmt.Errorf("invalid aggregation operator %q in %q", op, s)
		}
		if !isIdentifier(fields[0]) {
			return AggExpr{}, fmt.Errorf("invalid aggregation column %q in %q", fields[0], s)
		}
		expr := AggExpr{Left: fields[0], Op: op[0]}
		if f, err := strconv.ParseFloat(fields[2], 64); err == nil {
			expr.RightConst = true
			expr.RightVal = f
			return expr, nil
		}
		if !isIdentifier(fields[2]) {
			return AggExpr{}, fmt.Errorf("invalid aggregation operand %q in %q", fields[2], s)
		}
		expr.Right = fields[2]
		return expr, nil
	default:
		return AggExpr{}, fmt.Errorf("aggregation column %q: want `col` or `col op operand`", trimmed)
	}
}

// isIdentifier accepts plain column names: letters, digits, underscores,
// not starting with a digit. Header-derived names outside this set cannot
// appear in arithmetic expressions, only as bare columns.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
