// Package shellspark compiles declarative data-transformation queries
// into single Unix shell command lines built from awk, grep or ripgrep,
// jq, and the sort family.
//
// A query is assembled through a fluent, persistent builder: every call
// returns a new Pipeline and leaves the receiver untouched, so prefixes
// can be shared and extended freely.
//
//	cmd, err := shellspark.From("sales.csv").
//		Parse(shellspark.CSV).
//		FilterCol("quantity", shellspark.Gt, 0).
//		GroupBy("region").
//		Agg(shellspark.Sum("price * quantity").As("total_revenue")).
//		Sort("total_revenue", shellspark.Desc()).
//		Compile()
//
// Aggregation columns admit a tiny arithmetic sub-language: a plain
// column name, `col op col`, or `col op const` with op one of + - * /.
// Anything richer is rejected at build time.
package shellspark

import (
	"sort"
	"strings"

	"github.com/roach88/shellspark/internal/plan"
)

// Format names a Parse input structure.
type Format = plan.Format

const (
	Text Format = plan.FormatText
	CSV  Format = plan.FormatCSV
	JSON Format = plan.FormatJSON
)

// Op is a filter operator.
type Op = plan.Op

const (
	Eq         Op = plan.OpEq
	Ne         Op = plan.OpNe
	Lt         Op = plan.OpLt
	Le         Op = plan.OpLe
	Gt         Op = plan.OpGt
	Ge         Op = plan.OpGe
	Contains   Op = plan.OpContains
	Regex      Op = plan.OpRegex
	StartsWith Op = plan.OpStartsWith
	EndsWith   Op = plan.OpEndsWith
)

// AutoWorkers asks Parallel to size itself to the CPU count.
const AutoWorkers = plan.AutoWorkers

// ParseOp resolves an operator name, accepting the lte/gte aliases.
func ParseOp(name string) (Op, error) {
	return plan.ParseOp(name)
}

// Pipeline is an immutable query under construction. The zero value is
// not useful; start with From or FromGlob.
type Pipeline struct {
	root plan.Node
	err  error
}

// From starts a pipeline over a file path. Glob metacharacters are
// detected automatically; use FromGlob to force glob semantics.
func From(path string) *Pipeline {
	return &Pipeline{root: plan.Source{
		Pattern: path,
		IsGlob:  strings.ContainsAny(path, "*?["),
	}}
}

// FromGlob starts a pipeline over a glob pattern.
func FromGlob(pattern string) *Pipeline {
	return &Pipeline{root: plan.Source{Pattern: pattern, IsGlob: true}}
}

// ParseOption customises a Parse step.
type ParseOption func(*plan.Parse)

// WithDelimiter overrides the csv field delimiter.
func WithDelimiter(d string) ParseOption {
	return func(p *plan.Parse) { p.Delimiter = d }
}

// WithoutHeader marks a csv input as headerless. Field-aware operations
// on such input are rejected at build time.
func WithoutHeader() ParseOption {
	return func(p *plan.Parse) { p.HasHeader = false }
}

// Parse declares the input format. CSV defaults to a comma delimiter and
// a header row.
func (p *Pipeline) Parse(format Format, opts ...ParseOption) *Pipeline {
	node := plan.Parse{Format: format}
	if format == plan.FormatCSV {
		node.Delimiter = ","
		node.HasHeader = true
	}
	for _, opt := range opts {
		opt(&node)
	}
	return p.push(func(input plan.Node) plan.Node {
		node.Input = input
		return node
	})
}

// FilterCol adds a predicate on a named field.
func (p *Pipeline) FilterCol(column string, op Op, value any) *Pipeline {
	v, err := plan.NewValue(value)
	if err != nil {
		return p.fail(plan.NewPlanError(plan.ErrCodeBadOperand, "col_filter", "%v", err))
	}
	return p.push(func(input plan.Node) plan.Node {
		return plan.ColFilter{Input: input, Column: column, Op: op, Value: v}
	})
}

// FilterLine adds a predicate on the whole raw line. Only the
// string-matching operators are valid.
func (p *Pipeline) FilterLine(op Op, pattern string) *Pipeline {
	if !op.IsStringMatch() {
		return p.fail(plan.NewPlanError(plan.ErrCodeBadOperand, "line_filter",
			"operator %q is not valid on the line pseudo-column", op))
	}
	return p.push(func(input plan.Node) plan.Node {
		return plan.LineFilter{Input: input, Kind: plan.LineMatch(op), Pattern: pattern}
	})
}

// Select projects the named columns in the given order.
func (p *Pipeline) Select(columns ...string) *Pipeline {
	cols := append([]string{}, columns...)
	return p.push(func(input plan.Node) plan.Node {
		return plan.Select{Input: input, Columns: cols}
	})
}

// GroupBy marks the grouping columns. The next call must be Agg.
func (p *Pipeline) GroupBy(keys ...string) *Pipeline {
	ks := append([]string{}, keys...)
	return p.push(func(input plan.Node) plan.Node {
		return plan.GroupBy{Input: input, Keys: ks}
	})
}

// Agg defines the aggregated output columns. Must immediately follow
// GroupBy.
func (p *Pipeline) Agg(items ...AggItem) *Pipeline {
	if p.err == nil {
		if _, ok := p.root.(plan.GroupBy); !ok {
			return p.fail(plan.NewPlanError(plan.ErrCodeStructure, "agg",
				"must immediately follow GroupBy"))
		}
	}
	for _, item := range items {
		if item.Column == "*" {
			continue
		}
		if _, err := plan.ParseAggExpr(item.Column); err != nil {
			return p.fail(plan.NewPlanError(plan.ErrCodeBadOperand, "agg", "%v", err))
		}
	}
	copied := append([]AggItem{}, items...)
	return p.push(func(input plan.Node) plan.Node {
		return plan.Agg{Input: input, Items: copied}
	})
}

// SortOption customises a Sort step.
type SortOption func(*plan.Sort)

// Desc sorts descending.
func Desc() SortOption {
	return func(s *plan.Sort) { s.Descending = true }
}

// Numeric compares keys as numbers. Sorts on aggregation outputs are
// numeric automatically.
func Numeric() SortOption {
	return func(s *plan.Sort) { s.Numeric = true }
}

// Sort orders the stream by one key.
func (p *Pipeline) Sort(key string, opts ...SortOption) *Pipeline {
	node := plan.Sort{Key: key}
	for _, opt := range opts {
		opt(&node)
	}
	return p.push(func(input plan.Node) plan.Node {
		node.Input = input
		return node
	})
}

// Limit takes the first n rows.
func (p *Pipeline) Limit(n int) *Pipeline {
	return p.push(func(input plan.Node) plan.Node {
		return plan.Limit{Input: input, N: n}
	})
}

// Distinct deduplicates whole records.
func (p *Pipeline) Distinct() *Pipeline {
	return p.push(func(input plan.Node) plan.Node {
		return plan.Distinct{Input: input}
	})
}

// Parallel requests multi-file parallelism. workers is a positive count
// or AutoWorkers. Legality against global-state operators is checked at
// compile time, since later calls may introduce the conflict.
func (p *Pipeline) Parallel(workers int) *Pipeline {
	return p.push(func(input plan.Node) plan.Node {
		return plan.Parallel{Input: input, Workers: workers}
	})
}

// Where is keyword-style sugar over FilterCol and FilterLine. Each key
// has the form "name__op"; the pseudo-column "line" targets the whole
// record. Keys are applied in sorted order so the resulting plan, and
// therefore its hash, is deterministic.
//
//	p.Where(shellspark.K{"status__ge": 400, "line__contains": "POST"})
func (p *Pipeline) Where(kv K) *Pipeline {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := p
	for _, key := range keys {
		column, opName, found := strings.Cut(key, "__")
		if !found {
			return out.fail(plan.NewPlanError(plan.ErrCodeBadOperand, "col_filter",
				"filter key %q: want the form name__op", key))
		}
		op, err := plan.ParseOp(opName)
		if err != nil {
			return out.fail(plan.NewPlanError(plan.ErrCodeBadOperand, "col_filter", "filter key %q: %v", key, err))
		}
		if column == "line" {
			pattern, ok := kv[key].(string)
			if !ok {
				return out.fail(plan.NewPlanError(plan.ErrCodeBadOperand, "line_filter",
					"filter key %q: line patterns must be strings", key))
			}
			out = out.FilterLine(op, pattern)
			continue
		}
		out = out.FilterCol(column, op, kv[key])
	}
	return out
}

// K is the keyword map accepted by Where.
type K map[string]any

// Err returns the first builder error, if any. Compile reports it too;
// Err exists for callers that want to fail before compiling.
func (p *Pipeline) Err() error { return p.err }

// Hash returns the structural hash of the current plan. Equal call
// sequences with equal values produce equal hashes.
func (p *Pipeline) Hash() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return plan.Hash(p.root)
}

// Compile lowers the pipeline to a POSIX shell command line using the
// process-wide toolset. Use CompileWith to bind a specific Toolset.
func (p *Pipeline) Compile() (string, error) {
	return p.CompileWith(DefaultToolset())
}

// ClearCaches drops the default toolset's compile cache and forgets its
// tool resolutions, for use after installing tools or changing
// SHELLSPARK_* overrides.
func ClearCaches() {
	DefaultToolset().ClearCaches()
}

// push appends a node, enforcing the GroupBy-then-Agg pairing and the
// Parse requirement of field-aware nodes eagerly so the mistake is
// reported at the offending call.
func (p *Pipeline) push(build func(plan.Node) plan.Node) *Pipeline {
	if p.err != nil {
		return p
	}
	next := build(p.root)
	switch next.(type) {
	case plan.ColFilter, plan.Select, plan.GroupBy:
		var parse *plan.Parse
		for n := p.root; n != nil && parse == nil; n = n.Child() {
			if pn, ok := n.(plan.Parse); ok {
				parse = &pn
			}
		}
		if parse == nil || (parse.Format == plan.FormatCSV && !parse.HasHeader) {
			return p.fail(plan.NewPlanError(plan.ErrCodeMissingParse, plan.KindOf(next),
				"requires a preceding Parse, with has_header for csv"))
		}
	}
	if _, ok := p.root.(plan.GroupBy); ok {
		if _, isAgg := next.(plan.Agg); !isAgg {
			return p.fail(plan.NewPlanError(plan.ErrCodeStructure, "group_by",
				"must be immediately followed by Agg, not %s", plan.KindOf(next)))
		}
	}
	return &Pipeline{root: next}
}

func (p *Pipeline) fail(err error) *Pipeline {
	if p.err != nil {
		return p
	}
	return &Pipeline{root: p.root, err: err}
}
