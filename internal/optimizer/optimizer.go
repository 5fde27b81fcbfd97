// Package optimizer rewrites a plan into an equivalent plan that emits a
// smaller, faster command. Rules are applied in a fixed order; each rule
// runs to fixpoint before the next begins. The input plan is never
// mutated and the output is idempotent: Optimize(Optimize(p)) equals
// Optimize(p) structurally.
package optimizer

import (
	"github.com/roach88/shellspark/internal/plan"
)

// Optimize applies the rewrite passes and returns the new root.
//
// Passes, in order:
//  1. Filter pushdown: a ColFilter immediately downstream of a Select
//     moves above it when its column survives the projection. Filters
//     never cross a Parse; raw-line semantics differ from parsed
//     semantics, so LineFilters stay where the builder put them.
//  2. Duplicate filter elimination: structurally equal adjacent filters
//     collapse to one.
//  3. Post-aggregation Distinct elimination: Agg already yields unique
//     group keys.
//  4. Limit coalescing: adjacent Limits collapse to the minimum n.
//
// Limit is never pushed past Sort; that would change output.
func Optimize(root plan.Node) (plan.Node, error) {
	nodes := plan.Chain(root)

	nodes = runToFixpoint(nodes, pushFiltersDown)
	nodes = runToFixpoint(nodes, dropDuplicateFilters)
	nodes = runToFixpoint(nodes, dropDistinctAfterAgg)
	nodes = runToFixpoint(nodes, coalesceLimits)

	return rebuild(nodes)
}

// pass rewrites a leaf-first node slice, reporting whether it changed
// anything.
type pass func(nodes []plan.Node) ([]plan.Node, bool)

func runToFixpoint(nodes []plan.Node, p pass) []plan.Node {
	for {
		next, changed := p(nodes)
		if !changed {
			return next
		}
		nodes = next
	}
}

// pushFiltersDown moves one ColFilter per invocation a single step closer
// to the Source, past a Select whose projection keeps the filter column.
func pushFiltersDown(nodes []plan.Node) ([]plan.Node, bool) {
	for i := 1; i < len(nodes); i++ {
		filter, ok := nodes[i].(plan.ColFilter)
		if !ok {
			continue
		}
		sel, ok := nodes[i-1].(plan.Select)
		if !ok {
			continue
		}
		if !containsColumn(sel.Columns, filter.Column) {
			continue
		}
		out := append([]plan.Node(nil), nodes...)
		out[i-1], out[i] = filter, sel
		return out, true
	}
	return nodes, false
}

func containsColumn(columns []string, column string) bool {
	for _, c := range columns {
		if c == column {
			return true
		}
	}
	return false
}

// dropDuplicateFilters collapses adjacent structurally equal filters.
func dropDuplicateFilters(nodes []plan.Node) ([]plan.Node, bool) {
	for i := 1; i < len(nodes); i++ {
		if !isFilter(nodes[i]) || !isFilter(nodes[i-1]) {
			continue
		}
		a, errA := plan.NodeFingerprint(nodes[i-1])
		b, errB := plan.NodeFingerprint(nodes[i])
		if errA != nil || errB != nil {
			continue
		}
		if a == b {
			return removeAt(nodes, i), true
		}
	}
	return nodes, false
}

func isFilter(n plan.Node) bool {
	switch n.(type) {
	case plan.ColFilter, plan.LineFilter:
		return true
	}
	return false
}

// dropDistinctAfterAgg removes a Distinct whose input is an Agg.
func dropDistinctAfterAgg(nodes []plan.Node) ([]plan.Node, bool) {
	for i := 1; i < len(nodes); i++ {
		if _, ok := nodes[i].(plan.Distinct); !ok {
			continue
		}
		if _, ok := nodes[i-1].(plan.Agg); !ok {
			continue
		}
		return removeAt(nodes, i), true
	}
	return nodes, false
}

// coalesceLimits merges adjacent Limits into the smaller count.
func coalesceLimits(nodes []plan.Node) ([]plan.Node, bool) {
	for i := 1; i < len(nodes); i++ {
		outer, ok := nodes[i].(plan.Limit)
		if !ok {
			continue
		}
		inner, ok := nodes[i-1].(plan.Limit)
		if !ok {
			continue
		}
		n := inner.N
		if outer.N < n {
			n = outer.N
		}
		out := removeAt(nodes, i)
		out[i-1] = plan.Limit{N: n}
		return out, true
	}
	return nodes, false
}

func removeAt(nodes []plan.Node, i int) []plan.Node {
	out := make([]plan.Node, 0, len(nodes)-1)
	out = append(out, nodes[:i]...)
	return append(out, nodes[i+1:]...)
}

// rebuild re-links a leaf-first slice into a fresh chain. Every node is
// recreated so the optimized plan shares no structure with the input.
func rebuild(nodes []plan.Node) (plan.Node, error) {
	var prev plan.Node
	for _, n := range nodes {
		switch node := n.(type) {
		case plan.Source:
			prev = node
		case plan.Parse:
			node.Input = prev
			prev = node
		case plan.LineFilter:
			node.Input = prev
			prev = node
		case plan.ColFilter:
			node.Input = prev
			prev = node
		case plan.Select:
			node.Input = prev
			prev = node
		case plan.GroupBy:
			node.Input = prev
			prev = node
		case plan.Agg:
			node.Input = prev
			prev = node
		case plan.Sort:
			node.Input = prev
			prev = node
		case plan.Limit:
			node.Input = prev
			prev = node
		case plan.Distinct:
			node.Input = prev
			prev = node
		case plan.Parallel:
			node.Input = prev
			prev = node
		default:
			return nil, plan.NewPlanError(plan.ErrCodeStructure, plan.KindOf(n), "optimizer cannot rebuild node")
		}
	}
	return prev, nil
}
