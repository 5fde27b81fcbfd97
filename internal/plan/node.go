package plan

// Format declares how a byte stream is structured after a Parse node.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// LineMatch is the predicate kind of a LineFilter.
type LineMatch string

const (
	LineContains   LineMatch = "contains"
	LineRegex      LineMatch = "regex"
	LineStartsWith LineMatch = "startswith"
	LineEndsWith   LineMatch = "endswith"
)

// AutoWorkers requests one parallel worker per CPU.
const AutoWorkers = 0

// Node is a single operation in a query plan.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the emitters and the optimizer.
type Node interface {
	planNode()

	// Child returns the node's input, or nil for Source.
	Child() Node
}

// Source names the input file or glob. Always the leaf of a plan.
type Source struct {
	Pattern string
	IsGlob  bool
}

func (Source) planNode() {}
func (Source) Child() Node { return nil }

// Parse declares the structure of the upstream byte stream. For csv it
// introduces a column-name to index mapping when HasHeader is true.
type Parse struct {
	Input     Node
	Format    Format
	Delimiter string // csv only; defaults to ","
	HasHeader bool   // csv only
}

func (Parse) planNode()      {}
func (n Parse) Child() Node { return n.Input }

// LineFilter is a predicate on raw lines with no field awareness.
// Kind is restricted to the string-matching operators.
type LineFilter struct {
	Input   Node
	Kind    LineMatch
	Pattern string
}

func (LineFilter) planNode()     {}
func (n LineFilter) Child() Node { return n.Input }

// ColFilter is a predicate on a named field. Requires a Parse upstream.
type ColFilter struct {
	Input  Node
	Column string
	Op     Op
	Value  Value
}

func (ColFilter) planNode()     {}
func (n ColFilter) Child() Node { return n.Input }

// Select projects the named columns, preserving the given order.
// Duplicates are allowed.
type Select struct {
	Input   Node
	Columns []string
}

func (Select) planNode()     {}
func (n Select) Child() Node { return n.Input }

// GroupBy marks the grouping columns. It must be immediately followed by
// an Agg node; Validate rejects anything else.
type GroupBy struct {
	Input Node
	Keys  []string
}

func (GroupBy) planNode()     {}
func (n GroupBy) Child() Node { return n.Input }

// Agg defines the aggregated output columns. Its input is always a
// GroupBy. Output layout is keys first, then aliases in declaration order.
type Agg struct {
	Input Node
	Items []AggItem
}

func (Agg) planNode()     {}
func (n Agg) Child() Node { return n.Input }

// Sort is a total order on one key. Ties preserve input order only in the
// sense that equal keys are not reordered deliberately; anything stronger
// is unspecified.
type Sort struct {
	Input      Node
	Key        string
	Descending bool
	Numeric    bool
}

func (Sort) planNode()     {}
func (n Sort) Child() Node { return n.Input }

// Limit takes the first N rows.
type Limit struct {
	Input Node
	N     int
}

func (Limit) planNode()     {}
func (n Limit) Child() Node { return n.Input }

// Distinct deduplicates whole records.
type Distinct struct {
	Input Node
}

func (Distinct) planNode()     {}
func (n Distinct) Child() Node { return n.Input }

// Parallel requests multi-file parallelism for the pipeline prefix.
// Workers is a positive count or AutoWorkers. Legality (no global-state
// operator anywhere in the plan) is checked at compile time.
type Parallel struct {
	Input   Node
	Workers int
}

func (Parallel) planNode()     {}
func (n Parallel) Child() Node { return n.Input }

// Chain flattens a plan into leaf-first order: Chain(root)[0] is the
// Source, the last element is the root.
func Chain(root Node) []Node {
	var rev []Node
	for n := root; n != nil; n = n.Child() {
		rev = append(rev, n)
	}
	out := make([]Node, len(rev))
	for i, n := range rev {
		out[len(rev)-1-i] = n
	}
	return out
}

// FindSource returns the Source at the leaf of the plan, or false when the
// chain is malformed and has no Source.
func FindSource(root Node) (Source, bool) {
	for n := root; n != nil; n = n.Child() {
		if s, ok := n.(Source); ok {
			return s, true
		}
	}
	return Source{}, false
}

// kindOf names a node for error messages and canonical encoding.
func kindOf(n Node) string {
	switch n.(type) {
	case Source:
		return "source"
	case Parse:
		return "parse"
	case LineFilter:
		return "line_filter"
	case ColFilter:
		return "col_filter"
	case Select:
		return "select"
	case GroupBy:
		return "group_by"
	case Agg:
		return "agg"
	case Sort:
		return "sort"
	case Limit:
		return "limit"
	case Distinct:
		return "distinct"
	case Parallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// KindOf exposes the node kind name used in diagnostics.
func KindOf(n Node) string { return kindOf(n) }
