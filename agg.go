package shellspark

import "github.com/roach88/shellspark/internal/plan"

// AggItem is one aggregated output column: alias, source column (or
// arithmetic expression), and function.
type AggItem = plan.AggItem

// AggSpec is a half-built aggregation awaiting its alias. The helper
// constructors below mirror the functions the compiler supports; finish
// each with As.
type AggSpec struct {
	column string
	fn     plan.AggFunc
}

// As names the output column and completes the aggregation.
func (s AggSpec) As(alias string) AggItem {
	return AggItem{Alias: alias, Column: s.column, Fn: s.fn}
}

// Count counts rows per group.
func Count() AggSpec { return AggSpec{column: "*", fn: plan.AggCount} }

// CountOf counts rows per group, like Count; empty values of the column
// are counted too.
func CountOf(column string) AggSpec { return AggSpec{column: column, fn: plan.AggCount} }

// Sum totals a numeric column or expression per group.
func Sum(column string) AggSpec { return AggSpec{column: column, fn: plan.AggSum} }

// Avg averages a numeric column or expression per group.
func Avg(column string) AggSpec { return AggSpec{column: column, fn: plan.AggAvg} }

// Mean is an alias for Avg.
func Mean(column string) AggSpec { return Avg(column) }

// Min tracks the smallest value per group.
func Min(column string) AggSpec { return AggSpec{column: column, fn: plan.AggMin} }

// Max tracks the largest value per group.
func Max(column string) AggSpec { return AggSpec{column: column, fn: plan.AggMax} }

// First records the first value seen per group in input order.
func First(column string) AggSpec { return AggSpec{column: column, fn: plan.AggFirst} }

// Last records the last value seen per group in input order.
func Last(column string) AggSpec { return AggSpec{column: column, fn: plan.AggLast} }

// CountDistinct counts unique values per group.
func CountDistinct(column string) AggSpec {
	return AggSpec{column: column, fn: plan.AggCountDistinct}
}

// AggAs is the explicit tuple form: (alias, column, function name). The
// helper constructors are sugar over this shape.
func AggAs(alias, column, fn string) (AggItem, error) {
	parsed, err := plan.ParseAggFunc(fn)
	if err != nil {
		return AggItem{}, plan.NewPlanError(plan.ErrCodeBadOperand, "agg", "%v", err)
	}
	return AggItem{Alias: alias, Column: column, Fn: parsed}, nil
}
