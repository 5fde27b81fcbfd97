package emit

import (
	"strings"

	"github.com/roach88/shellspark/internal/plan"
	"github.com/roach88/shellspark/internal/tools"
)

// EmitJQ renders the json run: filters become select() steps, a Select
// becomes an object constructor. The whole program is one shell argument;
// output is compact, one record per line.
func EmitJQ(tool tools.JQTool, filters []plan.ColFilter, sel *plan.Select) (Fragment, error) {
	var steps []string
	for _, f := range filters {
		expr, err := jqPredicate(f)
		if err != nil {
			return Fragment{}, err
		}
		steps = append(steps, "select("+expr+")")
	}
	if sel != nil {
		steps = append(steps, "{"+strings.Join(sel.Columns, ", ")+"}")
	}

	program := "."
	if len(steps) > 0 {
		program = strings.Join(steps, " | ")
	}
	quoted, err := Single(program)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Cmd: tool.Path + " -c " + quoted, In: StreamNDJSON, Out: StreamNDJSON}, nil
}

// EmitJQConvert renders the tab-separation step that feeds field-level
// awk or sort processing downstream of a json parse.
func EmitJQConvert(tool tools.JQTool, columns []string) (Fragment, error) {
	refs := make([]string, len(columns))
	for i, c := range columns {
		refs[i] = jqField(c)
	}
	program := "[" + strings.Join(refs, ",") + "] | @tsv"
	quoted, err := Single(program)
	if err != nil {
		return Fragment{}, err
	}
	return Fragment{Cmd: tool.Path + " -r " + quoted, In: StreamNDJSON, Out: StreamTSV}, nil
}

func jqPredicate(f plan.ColFilter) (string, error) {
	field := jqField(f.Column)
	literal := f.Value.Literal()
	if f.Value.IsString() {
		literal = jqString(literal)
	}

	switch f.Op {
	case plan.OpEq:
		return field + " == " + literal, nil
	case plan.OpNe:
		return field + " != " + literal, nil
	case plan.OpLt:
		return field + " < " + literal, nil
	case plan.OpLe:
		return field + " <= " + literal, nil
	case plan.OpGt:
		return field + " > " + literal, nil
	case plan.OpGe:
		return field + " >= " + literal, nil
	case plan.OpContains:
		return field + " | contains(" + jqString(f.Value.Literal()) + ")", nil
	case plan.OpRegex:
		return field + " | test(" + jqString(f.Value.Literal()) + ")", nil
	case plan.OpStartsWith:
		return field + " | startswith(" + jqString(f.Value.Literal()) + ")", nil
	case plan.OpEndsWith:
		return field + " | endswith(" + jqString(f.Value.Literal()) + ")", nil
	default:
		return "", plan.NewPlanError(plan.ErrCodeBadOperand, "col_filter", "jq emitter cannot express operator %q", f.Op)
	}
}

// jqField turns a column name into a jq path. Dotted names address nested
// fields; a leading dot passes through untouched.
func jqField(column string) string {
	if strings.HasPrefix(column, ".") {
		return column
	}
	return "." + column
}

func jqString(s string) string {
	escaped := strings.ReplaceAll(s, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	escaped = strings.ReplaceAll(escaped, "\t", `\t`)
	return `"` + escaped + `"`
}
