package optimizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shellspark/internal/plan"
)

func kinds(root plan.Node) []string {
	nodes := plan.Chain(root)
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = plan.KindOf(n)
	}
	return out
}

func TestOptimize_PushesColFilterPastSelect(t *testing.T) {
	root := plan.ColFilter{
		Input: plan.Select{
			Input: plan.Parse{
				Input:     plan.Source{Pattern: "a.csv"},
				Format:    plan.FormatCSV,
				Delimiter: ",",
				HasHeader: true,
			},
			Columns: []string{"name", "age"},
		},
		Column: "age",
		Op:     plan.OpGt,
		Value:  plan.IntValue(30),
	}

	got, err := Optimize(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source", "parse", "col_filter", "select"}, kinds(got))
}

func TestOptimize_FilterNotPushedWhenColumnProjectedAway(t *testing.T) {
	root := plan.ColFilter{
		Input: plan.Select{
			Input: plan.Parse{
				Input:     plan.Source{Pattern: "a.csv"},
				Format:    plan.FormatCSV,
				Delimiter: ",",
				HasHeader: true,
			},
			Columns: []string{"name"},
		},
		Column: "age",
		Op:     plan.OpGt,
		Value:  plan.IntValue(30),
	}

	got, err := Optimize(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source", "parse", "select", "col_filter"}, kinds(got))
}

func TestOptimize_FilterNeverCrossesParse(t *testing.T) {
	root := plan.ColFilter{
		Input: plan.Parse{
			Input:     plan.Source{Pattern: "a.csv"},
			Format:    plan.FormatCSV,
			Delimiter: ",",
			HasHeader: true,
		},
		Column: "age",
		Op:     plan.OpGt,
		Value:  plan.IntValue(30),
	}

	got, err := Optimize(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source", "parse", "col_filter"}, kinds(got))
}

func TestOptimize_CollapsesDuplicateFilters(t *testing.T) {
	inner := plan.LineFilter{
		Input:   plan.Source{Pattern: "a.log"},
		Kind:    plan.LineContains,
		Pattern: "ERROR",
	}
	root := plan.LineFilter{Input: inner, Kind: plan.LineContains, Pattern: "ERROR"}

	got, err := Optimize(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source", "line_filter"}, kinds(got))
}

func TestOptimize_KeepsDistinctFilters(t *testing.T) {
	inner := plan.LineFilter{
		Input:   plan.Source{Pattern: "a.log"},
		Kind:    plan.LineContains,
		Pattern: "ERROR",
	}
	root := plan.LineFilter{Input: inner, Kind: plan.LineContains, Pattern: "WARN"}

	got, err := Optimize(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source", "line_filter", "line_filter"}, kinds(got))
}

func TestOptimize_DropsDistinctAfterAgg(t *testing.T) {
	root := plan.Distinct{
		Input: plan.Agg{
			Input: plan.GroupBy{
				Input: plan.Parse{
					Input:     plan.Source{Pattern: "a.csv"},
					Format:    plan.FormatCSV,
					Delimiter: ",",
					HasHeader: true,
				},
				Keys: []string{"region"},
			},
			Items: []plan.AggItem{{Alias: "n", Column: "*", Fn: plan.AggCount}},
		},
	}

	got, err := Optimize(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source", "parse", "group_by", "agg"}, kinds(got))
}

func TestOptimize_CoalescesLimits(t *testing.T) {
	root := plan.Limit{
		Input: plan.Limit{
			Input: plan.Limit{Input: plan.Source{Pattern: "a.log"}, N: 100},
			N:     10,
		},
		N: 50,
	}

	got, err := Optimize(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source", "limit"}, kinds(got))
	require.Equal(t, 10, plan.Chain(got)[1].(plan.Limit).N)
}

func TestOptimize_LimitStaysAfterSort(t *testing.T) {
	root := plan.Limit{
		Input: plan.Sort{Input: plan.Source{Pattern: "a.log"}, Key: "1"},
		N:     5,
	}

	got, err := Optimize(root)
	require.NoError(t, err)
	require.Equal(t, []string{"source", "sort", "limit"}, kinds(got))
}

func TestOptimize_Idempotent(t *testing.T) {
	root := plan.Limit{
		Input: plan.ColFilter{
			Input: plan.Select{
				Input: plan.Parse{
					Input:     plan.Source{Pattern: "a.csv"},
					Format:    plan.FormatCSV,
					Delimiter: ",",
					HasHeader: true,
				},
				Columns: []string{"name", "age"},
			},
			Column: "age",
			Op:     plan.OpGe,
			Value:  plan.IntValue(21),
		},
		N: 10,
	}

	once, err := Optimize(root)
	require.NoError(t, err)
	twice, err := Optimize(once)
	require.NoError(t, err)

	h1, err := plan.Hash(once)
	require.NoError(t, err)
	h2, err := plan.Hash(twice)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestOptimize_DoesNotMutateInput(t *testing.T) {
	root := plan.ColFilter{
		Input: plan.Select{
			Input: plan.Parse{
				Input:     plan.Source{Pattern: "a.csv"},
				Format:    plan.FormatCSV,
				Delimiter: ",",
				HasHeader: true,
			},
			Columns: []string{"age"},
		},
		Column: "age",
		Op:     plan.OpGt,
		Value:  plan.IntValue(1),
	}

	before, err := plan.Hash(root)
	require.NoError(t, err)
	_, err = Optimize(root)
	require.NoError(t, err)
	after, err := plan.Hash(root)
	require.NoError(t, err)
	require.Equal(t, before, after)
}
