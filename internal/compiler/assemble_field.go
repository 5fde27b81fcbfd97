package compiler

import (
	"github.com/roach88/shellspark/internal/emit"
	"github.com/roach88/shellspark/internal/plan"
)

// assembleFieldRun consumes the contiguous run of awk-amenable nodes
// after a csv/text Parse and fuses them into one awk invocation. A second
// field-aware stage over the same parse is impossible (the header map
// does not survive projection), which is why the run is maximal.
func (c *Compiler) assembleFieldRun(nodes []plan.Node, parseNode plan.Parse, pre []plan.LineFilter, st *streamState) (int, emit.Fragment, bool, error) {
	awkTool, err := c.registry.ResolveAwk()
	if err != nil {
		return 0, emit.Fragment{}, false, err
	}

	delim := parseNode.Delimiter
	if parseNode.Format == plan.FormatCSV && delim == "" {
		delim = ","
	}
	if parseNode.Format == plan.FormatText {
		delim = ""
	}

	q := emit.AwkQuery{
		FS:          delim,
		HasHeader:   parseNode.Format == plan.FormatCSV && parseNode.HasHeader,
		LineFilters: pre,
		In:          formatFor(parseNode.Format),
		Out:         formatFor(parseNode.Format),
	}

	var scope []string
	consumed := 0

collect:
	for consumed < len(nodes) {
		switch node := nodes[consumed].(type) {
		case plan.ColFilter:
			if err := checkScope(scope, node.Column, "col_filter"); err != nil {
				return 0, emit.Fragment{}, false, err
			}
			q.Filters = append(q.Filters, node)
		case plan.LineFilter:
			// A raw-line predicate after a projection must see the
			// projected line, so it cannot share the program.
			if q.Select != nil {
				break collect
			}
			q.LineFilters = append(q.LineFilters, node)
		case plan.Select:
			for _, col := range node.Columns {
				if err := checkScope(scope, col, "select"); err != nil {
					return 0, emit.Fragment{}, false, err
				}
			}
			sel := node
			q.Select = &sel
			scope = node.Columns
		case plan.GroupBy:
			for _, key := range node.Keys {
				if err := checkScope(scope, key, "group_by"); err != nil {
					return 0, emit.Fragment{}, false, err
				}
			}
			gb := node
			agg := nodes[consumed+1].(plan.Agg) // guaranteed by Validate
			for _, item := range agg.Items {
				if item.Column == "*" {
					continue
				}
				expr, perr := plan.ParseAggExpr(item.Column)
				if perr != nil {
					return 0, emit.Fragment{}, false, plan.NewPlanError(plan.ErrCodeBadOperand, "agg", "%v", perr)
				}
				for _, col := range expr.Columns() {
					if err := checkScope(scope, col, "agg"); err != nil {
						return 0, emit.Fragment{}, false, err
					}
				}
			}
			q.GroupBy = &gb
			q.Agg = &agg
			q.Select = nil
			consumed += 2
			break collect
		default:
			break collect
		}
		consumed++
	}

	outputSep := delim
	if outputSep == "" {
		outputSep = " "
	}
	q.OutputSep = outputSep

	// A bare Parse with nothing to do emits no stage at all.
	if consumed == 0 && len(q.LineFilters) == 0 {
		st.format = formatFor(parseNode.Format)
		st.delim = delim
		return 0, emit.Fragment{}, false, nil
	}

	frag, err := emit.EmitAwk(awkTool, q)
	if err != nil {
		return 0, emit.Fragment{}, false, err
	}

	c.advanceState(st, q, delim)
	return consumed, frag, true, nil
}

// assemblePositionalRun handles field-aware nodes downstream of a stage
// whose output layout is known: the emitted awk program addresses columns
// by position instead of a header map.
func (c *Compiler) assemblePositionalRun(nodes []plan.Node, st *streamState) (int, emit.Fragment, error) {
	awkTool, err := c.registry.ResolveAwk()
	if err != nil {
		return 0, emit.Fragment{}, err
	}

	q := emit.AwkQuery{
		FS:      st.delim,
		Columns: st.layout,
		In:      st.format,
		Out:     st.format,
	}
	scope := st.layout
	consumed := 0

collect:
	for consumed < len(nodes) {
		switch node := nodes[consumed].(type) {
		case plan.ColFilter:
			if err := checkScope(scope, node.Column, "col_filter"); err != nil {
				return 0, emit.Fragment{}, err
			}
			q.Filters = append(q.Filters, node)
		case plan.LineFilter:
			if q.Select != nil {
				break collect
			}
			q.LineFilters = append(q.LineFilters, node)
		case plan.Select:
			for _, col := range node.Columns {
				if err := checkScope(scope, col, "select"); err != nil {
					return 0, emit.Fragment{}, err
				}
			}
			sel := node
			q.Select = &sel
			scope = node.Columns
		case plan.GroupBy:
			for _, key := range node.Keys {
				if err := checkScope(scope, key, "group_by"); err != nil {
					return 0, emit.Fragment{}, err
				}
			}
			gb := node
			agg := nodes[consumed+1].(plan.Agg)
			q.GroupBy = &gb
			q.Agg = &agg
			q.Select = nil
			consumed += 2
			break collect
		default:
			break collect
		}
		consumed++
	}

	outputSep := st.delim
	if outputSep == "" {
		outputSep = " "
	}
	q.OutputSep = outputSep

	frag, err := emit.EmitAwk(awkTool, q)
	if err != nil {
		return 0, emit.Fragment{}, err
	}

	c.advanceState(st, q, st.delim)
	return consumed, frag, nil
}

// assembleJSON consumes the jq-amenable run after Parse(json). Filters
// ahead of a projection share a program with it; a filter that follows a
// projection starts a fresh jq stage so it predicates on the projected
// object.
func (c *Compiler) assembleJSON(nodes []plan.Node, st *streamState) (int, []emit.Fragment, error) {
	jqTool, ok := c.registry.ResolveJQ()
	if !ok {
		return 0, nil, c.missingJQ()
	}

	var frags []emit.Fragment
	var scope []string
	consumed := 0

	for {
		var filters []plan.ColFilter
		var sel *plan.Select
		j := consumed
	run:
		for j < len(nodes) {
			switch node := nodes[j].(type) {
			case plan.ColFilter:
				if sel != nil {
					break run
				}
				if err := checkScope(scope, node.Column, "col_filter"); err != nil {
					return 0, nil, err
				}
				filters = append(filters, node)
			case plan.Select:
				if sel != nil {
					break run
				}
				for _, col := range node.Columns {
					if err := checkScope(scope, col, "select"); err != nil {
						return 0, nil, err
					}
				}
				s := node
				sel = &s
			default:
				break run
			}
			j++
		}
		if j == consumed {
			break
		}
		frag, err := emit.EmitJQ(jqTool, filters, sel)
		if err != nil {
			return 0, nil, err
		}
		frags = append(frags, frag)
		if sel != nil {
			scope = sel.Columns
		}
		consumed = j
	}

	if len(frags) == 0 {
		// A bare Parse(json) still normalizes the stream to one compact
		// record per line.
		frag, err := emit.EmitJQ(jqTool, nil, nil)
		if err != nil {
			return 0, nil, err
		}
		frags = append(frags, frag)
	}

	st.format = emit.StreamNDJSON
	st.scope = scope
	st.layout = scope
	st.delim = ""
	return consumed, frags, nil
}

// convertToTSV inserts the jq tab-separation fragment so downstream
// sort/awk stages can address fields positionally.
func (c *Compiler) convertToTSV(st *streamState) (emit.Fragment, error) {
	if len(st.layout) == 0 {
		return emit.Fragment{}, plan.NewPlanError(plan.ErrCodeUnsupported, "sort",
			"field access on a json stream requires a preceding select to fix the column layout")
	}
	jqTool, ok := c.registry.ResolveJQ()
	if !ok {
		return emit.Fragment{}, c.missingJQ()
	}
	frag, err := emit.EmitJQConvert(jqTool, st.layout)
	if err != nil {
		return emit.Fragment{}, err
	}
	st.format = emit.StreamTSV
	st.delim = "\t"
	st.scope = st.layout
	return frag, nil
}

// neededColumns derives the conversion layout for a field-aware run over
// a json stream with no projection yet: every referenced column, in first
// reference order.
func neededColumns(nodes []plan.Node) []string {
	var cols []string
	seen := map[string]bool{}
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for i := 0; i < len(nodes); i++ {
		switch node := nodes[i].(type) {
		case plan.ColFilter:
			add(node.Column)
		case plan.Select:
			for _, c := range node.Columns {
				add(c)
			}
		case plan.GroupBy:
			for _, k := range node.Keys {
				add(k)
			}
		case plan.Agg:
			for _, item := range node.Items {
				if item.Column == "*" {
					continue
				}
				if expr, err := plan.ParseAggExpr(item.Column); err == nil {
					for _, c := range expr.Columns() {
						add(c)
					}
				}
			}
			return cols
		default:
			return cols
		}
	}
	return cols
}

// advanceState records what the emitted awk stage left on the stream.
func (c *Compiler) advanceState(st *streamState, q emit.AwkQuery, delim string) {
	st.delim = delim
	st.numeric = map[string]bool{}

	switch {
	case q.Agg != nil:
		layout := append([]string{}, q.GroupBy.Keys...)
		for _, item := range q.Agg.Items {
			layout = append(layout, item.Alias)
			switch item.Fn {
			case plan.AggCount, plan.AggSum, plan.AggAvg, plan.AggMin, plan.AggMax, plan.AggCountDistinct:
				st.numeric[item.Alias] = true
			}
		}
		st.layout = layout
		st.scope = layout
		st.delim = q.OutputSep
	case q.Select != nil:
		st.layout = q.Select.Columns
		st.scope = q.Select.Columns
	default:
		st.layout = nil
		st.scope = nil
	}

	st.format = q.Out
}

func checkScope(scope []string, column, node string) error {
	if scope == nil {
		return nil
	}
	for _, c := range scope {
		if c == column {
			return nil
		}
	}
	return plan.NewPlanError(plan.ErrCodeUnknownColumn, node,
		"column %q was projected away upstream", column)
}

func formatFor(f plan.Format) emit.StreamFormat {
	switch f {
	case plan.FormatCSV:
		return emit.StreamCSV
	case plan.FormatJSON:
		return emit.StreamNDJSON
	default:
		return emit.StreamRaw
	}
}
