package emit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/shellspark/internal/plan"
	"github.com/roach88/shellspark/internal/tools"
)

// AwkQuery is the contiguous run of field-aware work handed to one awk
// invocation: an optional header-bearing parse, fused filters, and either
// a projection or a grouped aggregation. Each call produces exactly one
// program. The header map does not survive projection, so a later
// field-aware stage addresses columns by position (Columns) instead.
type AwkQuery struct {
	// FS is the input field separator: "," for csv, "\t" for converted
	// json, "" for whitespace (text).
	FS string

	// HasHeader selects $h["name"] indirection seeded at NR==1.
	HasHeader bool

	// Columns gives the positional layout when the input has no header
	// but a known order (tsv from a jq conversion). Ignored when
	// HasHeader is set.
	Columns []string

	// Filters are fused into one conjunctive predicate.
	Filters []plan.ColFilter

	// LineFilters are raw-line predicates on $0, applied after the header
	// row is consumed so they can never eat the header.
	LineFilters []plan.LineFilter

	Select  *plan.Select
	GroupBy *plan.GroupBy
	Agg     *plan.Agg

	// OutputSep joins printed fields: "," for csv pipelines, "\t" when
	// the downstream stage expects tabs.
	OutputSep string

	In  StreamFormat
	Out StreamFormat
}

// EmitAwk renders the query into a single quoted awk program.
func EmitAwk(tool tools.AwkTool, q AwkQuery) (Fragment, error) {
	program, err := buildProgram(q)
	if err != nil {
		return Fragment{}, err
	}
	quoted, err := Single(program)
	if err != nil {
		return Fragment{}, err
	}

	parts := []string{tool.Path}
	if q.FS != "" {
		parts = append(parts, "-F"+Arg(q.FS))
	}
	parts = append(parts, quoted)
	return Fragment{Cmd: strings.Join(parts, " "), In: q.In, Out: q.Out}, nil
}

func buildProgram(q AwkQuery) (string, error) {
	var parts []string
	if q.HasHeader {
		parts = append(parts, "NR==1{for(i=1;i<=NF;i++)h[$i]=i; next}")
	}

	conds, err := q.conditions()
	if err != nil {
		return "", err
	}

	if q.GroupBy != nil {
		body, err := q.groupByProgram(conds)
		if err != nil {
			return "", err
		}
		return strings.Join(append(parts, body...), " "), nil
	}

	action, err := q.selectAction()
	if err != nil {
		return "", err
	}
	if len(conds) > 0 {
		parts = append(parts, strings.Join(conds, " && ")+"{"+action+"}")
	} else {
		parts = append(parts, "{"+action+"}")
	}
	return strings.Join(parts, " "), nil
}

// fieldRef resolves a column to an awk field expression.
func (q AwkQuery) fieldRef(column string) (string, error) {
	if q.HasHeader {
		return `$h["` + escapeAwkString(column) + `"]`, nil
	}
	for i, c := range q.Columns {
		if c == column {
			return "$" + strconv.Itoa(i+1), nil
		}
	}
	return "", plan.NewPlanError(plan.ErrCodeUnknownColumn, "col_filter",
		"column %q is not in scope for the awk stage", column)
}

func (q AwkQuery) conditions() ([]string, error) {
	var conds []string
	for _, f := range q.Filters {
		ref, err := q.fieldRef(f.Column)
		if err != nil {
			return nil, err
		}
		cond, err := filterCondition(ref, f.Op, f.Value)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	for _, lf := range q.LineFilters {
		cond, err := filterCondition("$0", plan.Op(lf.Kind), plan.StringValue(lf.Pattern))
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	return conds, nil
}

// filterCondition renders one predicate. String operands are quoted awk
// string literals; numeric operands stay bare so awk compares numerically.
func filterCondition(field string, op plan.Op, value plan.Value) (string, error) {
	literal := value.Literal()
	if value.IsString() {
		literal = `"` + escapeAwkString(literal) + `"`
	}

	switch op {
	case plan.OpEq:
		return field + "==" + literal, nil
	case plan.OpNe:
		return field + "!=" + literal, nil
	case plan.OpLt:
		return field + "<" + literal, nil
	case plan.OpLe:
		return field + "<=" + literal, nil
	case plan.OpGt:
		return field + ">" + literal, nil
	case plan.OpGe:
		return field + ">=" + literal, nil
	case plan.OpContains:
		return "index(" + field + "," + literal + ")>0", nil
	case plan.OpRegex:
		return field + "~/" + escapeAwkRegex(value.Literal()) + "/", nil
	case plan.OpStartsWith:
		return "index(" + field + "," + literal + ")==1", nil
	case plan.OpEndsWith:
		return "substr(" + field + ",length(" + field + ")-length(" + literal + ")+1)==" + literal, nil
	default:
		return "", plan.NewPlanError(plan.ErrCodeBadOperand, "col_filter", "awk emitter cannot express operator %q", op)
	}
}

func (q AwkQuery) selectAction() (string, error) {
	if q.Select == nil {
		return "print", nil
	}
	refs := make([]string, len(q.Select.Columns))
	for i, col := range q.Select.Columns {
		ref, err := q.fieldRef(col)
		if err != nil {
			return "", err
		}
		refs[i] = ref
	}
	if len(refs) == 1 {
		return "print " + refs[0], nil
	}
	sep := `"` + escapeAwkString(q.OutputSep) + `"`
	return "print " + strings.Join(refs, sep), nil
}

// exprRef renders an aggregation column expression into an awk value
// expression: a field, (field op field), or (field op const).
func (q AwkQuery) exprRef(column string) (string, error) {
	expr, err := plan.ParseAggExpr(column)
	if err != nil {
		return "", plan.NewPlanError(plan.ErrCodeBadOperand, "agg", "%v", err)
	}
	left, lerr := q.fieldRef(expr.Left)
	if lerr != nil {
		return "", lerr
	}
	if expr.Op == 0 {
		return left, nil
	}
	var right string
	if expr.RightConst {
		right = strconv.FormatFloat(expr.RightVal, 'g', -1, 64)
	} else {
		r, rerr := q.fieldRef(expr.Right)
		if rerr != nil {
			return "", rerr
		}
		right = r
	}
	return "(" + left + string(expr.Op) + right + ")", nil
}

func (q AwkQuery) groupByProgram(conds []string) ([]string, error) {
	keys := q.GroupBy.Keys
	keyRefs := make([]string, len(keys))
	for i, k := range keys {
		ref, err := q.fieldRef(k)
		if err != nil {
			return nil, err
		}
		keyRefs[i] = ref
	}
	keyExpr := keyRefs[0]
	if len(keyRefs) > 1 {
		keyExpr = "(" + strings.Join(keyRefs, " SUBSEP ") + ")"
	}

	stmts := []string{"key=" + keyExpr}
	for _, item := range q.Agg.Items {
		accum, err := q.accumulate(item)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, accum...)
	}
	stmts = append(stmts, "_keys[key]=1")
	main := "{" + strings.Join(stmts, "; ") + "}"
	if len(conds) > 0 {
		main = strings.Join(conds, " && ") + main
	}

	end, err := q.endBlock()
	if err != nil {
		return nil, err
	}
	return []string{main, end}, nil
}

// accumulate emits the per-record statements for one aggregation.
func (q AwkQuery) accumulate(item plan.AggItem) ([]string, error) {
	name := sanitizeName(item.Alias)
	var ref string
	if item.Column != "*" {
		r, err := q.exprRef(item.Column)
		if err != nil {
			return nil, err
		}
		ref = r
	}

	switch item.Fn {
	case plan.AggCount:
		return []string{"_count_" + name + "[key]++"}, nil
	case plan.AggSum:
		return []string{"_sum_" + name + "[key]+=" + ref}, nil
	case plan.AggAvg:
		return []string{
			"_sum_" + name + "[key]+=" + ref,
			"_cnt_" + name + "[key]++",
		}, nil
	case plan.AggMin:
		return []string{fmt.Sprintf("if(!_seen_%s[key]||%s<_min_%s[key]){_min_%s[key]=%s;_seen_%s[key]=1}",
			name, ref, name, name, ref, name)}, nil
	case plan.AggMax:
		return []string{fmt.Sprintf("if(!_seen_%s[key]||%s>_max_%s[key]){_max_%s[key]=%s;_seen_%s[key]=1}",
			name, ref, name, name, ref, name)}, nil
	case plan.AggFirst:
		return []string{fmt.Sprintf("if(!_seen_%s[key]){_first_%s[key]=%s;_seen_%s[key]=1}",
			name, name, ref, name)}, nil
	case plan.AggLast:
		return []string{"_last_" + name + "[key]=" + ref}, nil
	case plan.AggCountDistinct:
		return []string{"_cd_" + name + "[key," + ref + "]=1"}, nil
	default:
		return nil, plan.NewPlanError(plan.ErrCodeBadOperand, "agg", "unknown aggregation %q", item.Fn)
	}
}

// endBlock prints one record per group: keys first, then aggregation
// values in declaration order.
func (q AwkQuery) endBlock() (string, error) {
	var stmts []string
	keyOutputs := []string{"k"}
	if len(q.GroupBy.Keys) > 1 {
		stmts = append(stmts, "split(k,_parts,SUBSEP)")
		keyOutputs = keyOutputs[:0]
		for i := range q.GroupBy.Keys {
			keyOutputs = append(keyOutputs, "_parts["+strconv.Itoa(i+1)+"]")
		}
	}

	outputs := append([]string{}, keyOutputs...)
	for _, item := range q.Agg.Items {
		name := sanitizeName(item.Alias)
		switch item.Fn {
		case plan.AggCount:
			outputs = append(outputs, "_count_"+name+"[k]")
		case plan.AggSum:
			outputs = append(outputs, "_sum_"+name+"[k]")
		case plan.AggAvg:
			outputs = append(outputs, "_sum_"+name+"[k]/_cnt_"+name+"[k]")
		case plan.AggMin:
			outputs = append(outputs, "_min_"+name+"[k]")
		case plan.AggMax:
			outputs = append(outputs, "_max_"+name+"[k]")
		case plan.AggFirst:
			outputs = append(outputs, "_first_"+name+"[k]")
		case plan.AggLast:
			outputs = append(outputs, "_last_"+name+"[k]")
		case plan.AggCountDistinct:
			cv := "_cdc_" + name
			stmts = append(stmts,
				cv+"=0",
				"for(_cdk in _cd_"+name+"){split(_cdk,_cdp,SUBSEP);if(_cdp[1]==k)"+cv+"++}")
			outputs = append(outputs, cv)
		}
	}

	sep := `"` + escapeAwkString(q.OutputSep) + `"`
	printStmt := "print " + outputs[0]
	if len(outputs) > 1 {
		printStmt = "print " + strings.Join(outputs, sep)
	}
	stmts = append(stmts, printStmt)

	return "END{for(k in _keys){" + strings.Join(stmts, "; ") + "}}", nil
}

// sanitizeName makes an alias safe as an awk identifier fragment.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// escapeAwkString escapes a value for an awk double-quoted literal.
func escapeAwkString(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// escapeAwkRegex escapes a pattern for the /.../ match syntax.
func escapeAwkRegex(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '/':
			b.WriteString(`\/`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
