package plan

// Validate checks the structural invariants of a plan:
//
//  1. Exactly one Source, at the leaf.
//  2. Agg appears iff its immediate input is GroupBy, and every GroupBy is
//     immediately followed by an Agg.
//  3. ColFilter, Select, GroupBy, Agg require a Parse upstream; for csv the
//     Parse must carry has_header.
//  4. Parallel appears at most once. Its global-state legality is a
//     compile-time check (ValidateParallel), since later builder calls may
//     introduce the conflict.
//  5. Operand sanity: positive Limit, non-negative workers, recognized
//     operators and aggregation expressions.
//
// Validate is a pure function with no side effects.
func Validate(root Node) error {
	nodes := Chain(root)
	if len(nodes) == 0 {
		return NewPlanError(ErrCodeStructure, "", "empty plan")
	}

	if _, ok := nodes[0].(Source); !ok {
		return NewPlanError(ErrCodeStructure, kindOf(nodes[0]), "plan must begin at a Source")
	}

	var (
		parse        *Parse
		parallelSeen bool
	)

	for i, n := range nodes {
		if i > 0 {
			if _, ok := n.(Source); ok {
				return NewPlanError(ErrCodeStructure, "source", "Source is only legal at the leaf")
			}
		}

		switch node := n.(type) {
		case Source:
			if node.Pattern == "" {
				return NewPlanError(ErrCodeBadOperand, "source", "empty input pattern")
			}
		case Parse:
			if parse != nil {
				return NewPlanError(ErrCodeStructure, "parse", "plan already has a Parse node")
			}
			switch node.Format {
			case FormatText, FormatCSV, FormatJSON:
			default:
				return NewPlanError(ErrCodeBadOperand, "parse", "unknown format %q", node.Format)
			}
			p := node
			parse = &p
		case LineFilter:
			if _, ok := Op(node.Kind).lineMatch(); !ok {
				return NewPlanError(ErrCodeBadOperand, "line_filter", "operator %q is not valid on the line pseudo-column", node.Kind)
			}
		case ColFilter:
			if err := requireParse(parse, "col_filter", node.Column); err != nil {
				return err
			}
			if !node.Op.IsComparison() && !node.Op.IsStringMatch() {
				return NewPlanError(ErrCodeBadOperand, "col_filter", "unknown operator %q", node.Op)
			}
		case Select:
			if len(node.Columns) == 0 {
				return NewPlanError(ErrCodeBadOperand, "select", "requires at least one column")
			}
			if err := requireParse(parse, "select", node.Columns[0]); err != nil {
				return err
			}
		case GroupBy:
			if len(node.Keys) == 0 {
				return NewPlanError(ErrCodeBadOperand, "group_by", "requires at least one key")
			}
			if err := requireParse(parse, "group_by", node.Keys[0]); err != nil {
				return err
			}
			if i+1 >= len(nodes) {
				return NewPlanError(ErrCodeStructure, "group_by", "must be immediately followed by an Agg")
			}
			if _, ok := nodes[i+1].(Agg); !ok {
				return NewPlanError(ErrCodeStructure, "group_by", "must be immediately followed by an Agg, not %s", kindOf(nodes[i+1]))
			}
		case Agg:
			if _, ok := n.Child().(GroupBy); !ok {
				return NewPlanError(ErrCodeStructure, "agg", "requires an immediately preceding GroupBy")
			}
			if len(node.Items) == 0 {
				return NewPlanError(ErrCodeBadOperand, "agg", "requires at least one aggregation")
			}
			for _, item := range node.Items {
				if err := validateAggItem(item); err != nil {
					return err
				}
			}
		case Sort:
			if node.Key == "" {
				return NewPlanError(ErrCodeBadOperand, "sort", "empty sort key")
			}
		case Limit:
			if node.N < 1 {
				return NewPlanError(ErrCodeBadOperand, "limit", "n must be positive, got %d", node.N)
			}
		case Distinct:
			// no fields
		case Parallel:
			if parallelSeen {
				return NewPlanError(ErrCodeParallel, "parallel", "appears more than once")
			}
			parallelSeen = true
			if node.Workers < 0 {
				return NewPlanError(ErrCodeBadOperand, "parallel", "workers must be positive or AUTO")
			}
		}
	}

	return nil
}

// ValidateParallel enforces the global-state rule: a plan containing
// Parallel must contain none of Sort, Distinct, GroupBy, or Limit. Run at
// compile time because builder calls after parallel() may introduce the
// conflict.
func ValidateParallel(root Node) error {
	hasParallel := false
	conflict := ""
	for n := root; n != nil; n = n.Child() {
		switch n.(type) {
		case Parallel:
			hasParallel = true
		case Sort, Distinct, GroupBy, Limit:
			if conflict == "" {
				conflict = kindOf(n)
			}
		}
	}
	if hasParallel && conflict != "" {
		return NewPlanError(ErrCodeParallel, "parallel", "cannot combine with global-state operator %s", conflict)
	}
	return nil
}

func requireParse(parse *Parse, node, column string) error {
	if parse == nil {
		return NewPlanError(ErrCodeMissingParse, node, "column %q referenced without a preceding Parse", column)
	}
	if parse.Format == FormatCSV && !parse.HasHeader {
		return NewPlanError(ErrCodeMissingParse, node, "column %q requires Parse(csv) with has_header", column)
	}
	return nil
}

func validateAggItem(item AggItem) error {
	if item.Alias == "" {
		return NewPlanError(ErrCodeBadOperand, "agg", "aggregation without an alias")
	}
	switch item.Fn {
	case AggCount, AggSum, AggAvg, AggMin, AggMax, AggFirst, AggLast, AggCountDistinct:
	default:
		return NewPlanError(ErrCodeBadOperand, "agg", "unknown aggregation function %q for %q", item.Fn, item.Alias)
	}
	if item.Column == "*" {
		if item.Fn != AggCount {
			return NewPlanError(ErrCodeBadOperand, "agg", "column \"*\" is only valid with count, not %s", item.Fn)
		}
		return nil
	}
	if _, err := ParseAggExpr(item.Column); err != nil {
		return NewPlanError(ErrCodeBadOperand, "agg", "%v", err)
	}
	return nil
}
