package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shellspark/internal/plan"
	"github.com/roach88/shellspark/internal/testutil"
	"github.com/roach88/shellspark/internal/tools"
)

func fullCompiler() *Compiler {
	return New(testutil.FullToolset().Registry())
}

func jsonParse(pattern string) plan.Parse {
	return plan.Parse{
		Input:  plan.Source{Pattern: pattern, IsGlob: globPattern(pattern)},
		Format: plan.FormatJSON,
	}
}

func globPattern(p string) bool {
	for _, r := range p {
		if r == '*' || r == '?' || r == '[' {
			return true
		}
	}
	return false
}

func TestCompile_LineFilterUsesRipgrep(t *testing.T) {
	root := plan.LineFilter{
		Input:   plan.Source{Pattern: "app.log"},
		Kind:    plan.LineContains,
		Pattern: "ERROR",
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t, "rg -F --no-filename 'ERROR' app.log", cmd)
}

func TestCompile_LineFilterFallsBackToGrep(t *testing.T) {
	c := New(testutil.FullToolset().Without("rg").Registry())
	root := plan.LineFilter{
		Input:   plan.Source{Pattern: "app.log"},
		Kind:    plan.LineContains,
		Pattern: "ERROR",
	}
	cmd, err := c.Compile(root)
	require.NoError(t, err)
	require.Equal(t, "grep -F 'ERROR' app.log", cmd)
}

func TestCompile_JSONProjection(t *testing.T) {
	root := plan.Select{
		Input:   jsonParse("users.json"),
		Columns: []string{"name", "email"},
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t, "jq -c '{name, email}' users.json", cmd)
}

func TestCompile_JSONFilterAndProjection(t *testing.T) {
	root := plan.Select{
		Input: plan.ColFilter{
			Input:  jsonParse("logs.json"),
			Column: "status",
			Op:     plan.OpGe,
			Value:  plan.IntValue(400),
		},
		Columns: []string{"path", "status", "response_time"},
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t, "jq -c 'select(.status >= 400) | {path, status, response_time}' logs.json", cmd)
}

func TestCompile_CSVAggregationWithSort(t *testing.T) {
	root := plan.Sort{
		Input: plan.Agg{
			Input: plan.GroupBy{
				Input: plan.ColFilter{
					Input: plan.Parse{
						Input:     plan.Source{Pattern: "sales.csv"},
						Format:    plan.FormatCSV,
						Delimiter: ",",
						HasHeader: true,
					},
					Column: "quantity",
					Op:     plan.OpGt,
					Value:  plan.IntValue(0),
				},
				Keys: []string{"region"},
			},
			Items: []plan.AggItem{
				{Alias: "total_revenue", Column: "price * quantity", Fn: plan.AggSum},
			},
		},
		Key:        "total_revenue",
		Descending: true,
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t,
		`mawk -F, 'NR==1{for(i=1;i<=NF;i++)h[$i]=i; next} `+
			`$h["quantity"]>0{key=$h["region"]; _sum_total_revenue[key]+=($h["price"]*$h["quantity"]); _keys[key]=1} `+
			`END{for(k in _keys){print k","_sum_total_revenue[k]}}' sales.csv | sort -t, -k2,2rn -T /tmp`,
		cmd)
}

func TestCompile_ParallelJSONGlob(t *testing.T) {
	root := plan.Parallel{
		Input: plan.ColFilter{
			Input:  jsonParse("logs/*.json"),
			Column: "status",
			Op:     plan.OpGe,
			Value:  plan.IntValue(400),
		},
		Workers: 8,
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t,
		"find logs -name '*.json' -print0 | xargs -0 -P8 jq -c 'select(.status >= 400)'",
		cmd)
}

func TestCompile_ParallelWithSortIsPlanError(t *testing.T) {
	root := plan.Sort{
		Input: plan.Parallel{
			Input: plan.ColFilter{
				Input:  jsonParse("logs/*.json"),
				Column: "status",
				Op:     plan.OpGe,
				Value:  plan.IntValue(400),
			},
			Workers: 8,
		},
		Key: "status",
	}
	_, err := fullCompiler().Compile(root)
	require.Error(t, err)
	require.True(t, plan.IsPlanError(err))
	require.Contains(t, err.Error(), "parallel")
	require.Contains(t, err.Error(), "sort")
}

func TestCompile_ParallelAutoUsesCPUCount(t *testing.T) {
	root := plan.Parallel{
		Input:   jsonParse("logs/*.json"),
		Workers: plan.AutoWorkers,
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Contains(t, cmd, "xargs -0 -P4 ")
}

func TestCompile_GlobWithoutParallelStaysInline(t *testing.T) {
	root := plan.ColFilter{
		Input:  jsonParse("logs/*.json"),
		Column: "status",
		Op:     plan.OpGe,
		Value:  plan.IntValue(500),
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t, "jq -c 'select(.status >= 500)' logs/*.json", cmd)
}

func TestCompile_HostileGlobGoesThroughFind(t *testing.T) {
	root := plan.LineFilter{
		Input:   plan.Source{Pattern: "my logs/*.json", IsGlob: true},
		Kind:    plan.LineContains,
		Pattern: "x",
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t, "find 'my logs' -name '*.json' -print0 | xargs -0 rg -F --no-filename 'x'", cmd)
}

func TestCompile_BareSourceIsCat(t *testing.T) {
	cmd, err := fullCompiler().Compile(plan.Source{Pattern: "app.log"})
	require.NoError(t, err)
	require.Equal(t, "cat app.log", cmd)
}

func TestCompile_LimitOnly(t *testing.T) {
	root := plan.Limit{Input: plan.Source{Pattern: "app.log"}, N: 5}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t, "head -n 5 app.log", cmd)
}

func TestCompile_DistinctAfterSortUsesUniq(t *testing.T) {
	root := plan.Distinct{
		Input: plan.Sort{
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
			Key: "region",
		},
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Contains(t, cmd, "| sort -t, -k1,1 -T /tmp | uniq")
}

func TestCompile_StandaloneDistinctUsesSortU(t *testing.T) {
	root := plan.Distinct{Input: plan.Source{Pattern: "names.txt"}}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t, "sort -u names.txt", cmd)
}

func TestCompile_FilterAfterAggregationIsPositional(t *testing.T) {
	root := plan.ColFilter{
		Input: plan.Agg{
			Input: plan.GroupBy{
				Input: plan.Parse{
					Input:     plan.Source{Pattern: "sales.csv"},
					Format:    plan.FormatCSV,
					Delimiter: ",",
					HasHeader: true,
				},
				Keys: []string{"region"},
			},
			Items: []plan.AggItem{{Alias: "total", Column: "price", Fn: plan.AggSum}},
		},
		Column: "total",
		Op:     plan.OpGt,
		Value:  plan.IntValue(100),
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Contains(t, cmd, "| mawk -F, '$2>100{print}'")
}

func TestCompile_SortOnJSONRequiresSelect(t *testing.T) {
	root := plan.Sort{Input: jsonParse("scores.json"), Key: "score"}
	_, err := fullCompiler().Compile(root)
	require.Error(t, err)
	require.True(t, plan.IsPlanError(err))
}

func TestCompile_SortOnJSONAfterSelectConverts(t *testing.T) {
	root := plan.Sort{
		Input: plan.Select{
			Input:   jsonParse("scores.json"),
			Columns: []string{"name", "score"},
		},
		Key:     "score",
		Numeric: true,
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Equal(t,
		"jq -c '{name, score}' scores.json | jq -r '[.name,.score] | @tsv' | sort -t'\t' -k2,2n -T /tmp",
		cmd)
}

func TestCompile_GroupByAfterJSONConverts(t *testing.T) {
	root := plan.Agg{
		Input: plan.GroupBy{
			Input: jsonParse("events.json"),
			Keys:  []string{"kind"},
		},
		Items: []plan.AggItem{{Alias: "n", Column: "*", Fn: plan.AggCount}},
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	require.Contains(t, cmd, "jq -c '.' events.json | jq -r '[.kind] | @tsv' | mawk -F'\t' ")
	require.Contains(t, cmd, "key=$1")
}

func TestCompile_SortByUnknownColumnIsPlanError(t *testing.T) {
	root := plan.Sort{
		Input: plan.Parse{
			Input:     plan.Source{Pattern: "a.csv"},
			Format:    plan.FormatCSV,
			Delimiter: ",",
			HasHeader: true,
		},
		Key: "price",
	}
	_, err := fullCompiler().Compile(root)
	require.Error(t, err)
	require.True(t, plan.IsPlanError(err))
	require.Contains(t, err.Error(), "price")
}

func TestCompile_MissingJQIsUnsupportedEnvironment(t *testing.T) {
	c := New(testutil.FullToolset().Without("jq").Registry())
	_, err := c.Compile(plan.Select{Input: jsonParse("a.json"), Columns: []string{"x"}})
	require.Error(t, err)
	require.True(t, tools.IsUnsupportedEnvironment(err))
	require.Contains(t, err.Error(), "jq")
}

func TestCompile_MissingAwkIsUnsupportedEnvironment(t *testing.T) {
	c := New(testutil.FullToolset().Without("mawk", "gawk", "awk").Registry())
	root := plan.Select{
		Input: plan.Parse{
			Input:     plan.Source{Pattern: "a.csv"},
			Format:    plan.FormatCSV,
			Delimiter: ",",
			HasHeader: true,
		},
		Columns: []string{"name"},
	}
	_, err := c.Compile(root)
	require.Error(t, err)
	require.True(t, tools.IsUnsupportedEnvironment(err))
	require.Contains(t, err.Error(), "awk")
}

func TestCompile_LineFilterFoldsIntoHeaderAwareAwk(t *testing.T) {
	root := plan.Select{
		Input: plan.LineFilter{
			Input: plan.Parse{
				Input:     plan.Source{Pattern: "a.csv"},
				Format:    plan.FormatCSV,
				Delimiter: ",",
				HasHeader: true,
			},
			Kind:    plan.LineContains,
			Pattern: "widget",
		},
		Columns: []string{"name"},
	}
	cmd, err := fullCompiler().Compile(root)
	require.NoError(t, err)
	// One awk stage; the raw predicate runs after the header row is
	// consumed so the header map survives.
	require.Contains(t, cmd, `index($0,"widget")>0`)
	require.NotContains(t, cmd, "rg ")
}

func TestCompile_GNUSortGetsThroughputFlags(t *testing.T) {
	fixture := testutil.FullToolset()
	fixture.SortParallel = true
	fixture.CPUs = 8
	c := New(fixture.Registry())

	root := plan.Sort{
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
		Key: "n",
	}
	cmd, err := c.Compile(root)
	require.NoError(t, err)
	require.Contains(t, cmd, "--parallel=8 -S 80% -T /tmp")
}
