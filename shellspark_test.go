package shellspark

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilder_IsPersistent(t *testing.T) {
	base := From("app.log")
	withError := base.FilterLine(Contains, "ERROR")
	withWarn := base.FilterLine(Contains, "WARN")

	baseHash, err := base.Hash()
	require.NoError(t, err)
	errHash, err := withError.Hash()
	require.NoError(t, err)
	warnHash, err := withWarn.Hash()
	require.NoError(t, err)

	require.NotEqual(t, baseHash, errHash)
	require.NotEqual(t, errHash, warnHash)

	// The shared prefix is untouched by either extension.
	again, err := base.Hash()
	require.NoError(t, err)
	require.Equal(t, baseHash, again)
}

func TestBuilder_SameCallsSameHash(t *testing.T) {
	build := func() *Pipeline {
		return From("sales.csv").
			Parse(CSV).
			FilterCol("quantity", Gt, 0).
			GroupBy("region").
			Agg(Sum("price * quantity").As("total_revenue")).
			Sort("total_revenue", Desc())
	}

	h1, err := build().Hash()
	require.NoError(t, err)
	h2, err := build().Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestBuilder_AggWithoutGroupByFailsAtTheCall(t *testing.T) {
	p := From("a.csv").Parse(CSV).Agg(Count().As("n"))
	require.Error(t, p.Err())
	require.True(t, IsPlanError(p.Err()))
}

func TestBuilder_GroupByNotFollowedByAggFails(t *testing.T) {
	p := From("a.csv").Parse(CSV).GroupBy("region").Limit(3)
	require.Error(t, p.Err())
	require.True(t, IsPlanError(p.Err()))
	require.Contains(t, p.Err().Error(), "group_by")
}

func TestBuilder_ErrorsStick(t *testing.T) {
	p := From("a.csv").Parse(CSV).Agg(Count().As("n")).Limit(5).Distinct()
	require.Error(t, p.Err())

	_, err := p.Compile()
	require.Error(t, err)
	require.Equal(t, p.Err(), err)
}

func TestWhere_KeywordProtocol(t *testing.T) {
	sugar := From("logs.json").Parse(JSON).Where(K{"status__gte": 400})
	require.NoError(t, sugar.Err())

	explicit := From("logs.json").Parse(JSON).FilterCol("status", Ge, 400)
	require.NoError(t, explicit.Err())

	sugarHash, err := sugar.Hash()
	require.NoError(t, err)
	explicitHash, err := explicit.Hash()
	require.NoError(t, err)
	require.Equal(t, explicitHash, sugarHash, "keyword form is sugar over the explicit form")
}

func TestWhere_LinePseudoColumn(t *testing.T) {
	sugar := From("app.log").Where(K{"line__contains": "ERROR"})
	require.NoError(t, sugar.Err())

	explicit := From("app.log").FilterLine(Contains, "ERROR")
	sugarHash, err := sugar.Hash()
	require.NoError(t, err)
	explicitHash, err := explicit.Hash()
	require.NoError(t, err)
	require.Equal(t, explicitHash, sugarHash)
}

func TestWhere_RejectsMalformedKeys(t *testing.T) {
	p := From("a.log").Where(K{"status": 400})
	require.Error(t, p.Err())
	require.True(t, IsPlanError(p.Err()))

	p = From("a.log").Where(K{"status__like": "x"})
	require.Error(t, p.Err())

	p = From("a.log").Where(K{"line__eq": "x"})
	require.Error(t, p.Err())
}

func TestWhere_IsDeterministicAcrossMapOrder(t *testing.T) {
	build := func() *Pipeline {
		return From("logs.json").Parse(JSON).Where(K{
			"status__ge":       400,
			"path__startswith": "/api",
			"method__eq":       "POST",
		})
	}
	h1, err := build().Hash()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		h2, err := build().Hash()
		require.NoError(t, err)
		require.Equal(t, h1, h2)
	}
}

func TestFilterLine_RejectsComparisons(t *testing.T) {
	p := From("a.log").FilterLine(Ge, "x")
	require.Error(t, p.Err())
}

func TestFilterCol_RejectsUnsupportedValueTypes(t *testing.T) {
	p := From("a.csv").Parse(CSV).FilterCol("x", Eq, []string{"no"})
	require.Error(t, p.Err())
}

func TestAggAs_TupleForm(t *testing.T) {
	item, err := AggAs("total", "price", "sum")
	require.NoError(t, err)
	require.Equal(t, Sum("price").As("total"), item)

	item, err = AggAs("m", "latency", "mean")
	require.NoError(t, err)
	require.Equal(t, Avg("latency").As("m"), item)

	_, err = AggAs("x", "col", "median")
	require.Error(t, err)
}

func TestDefaultToolset_IsProcessWide(t *testing.T) {
	require.Same(t, DefaultToolset(), DefaultToolset())
}

func TestNewToolset_IsIsolatedFromDefault(t *testing.T) {
	ts := NewToolset(ToolsetConfig{Awk: "gawk", TmpDir: "/var/tmp"})
	require.NotNil(t, ts)
	require.NotSame(t, DefaultToolset(), ts)
}

func TestParseOpAliases(t *testing.T) {
	op, err := ParseOp("lte")
	require.NoError(t, err)
	require.Equal(t, Le, op)
}

func TestParallelThenSortFailsAtCompileNotBuild(t *testing.T) {
	p := From("logs/*.json").Parse(JSON).FilterCol("status", Ge, 400).Parallel(8).Sort("status")
	require.NoError(t, p.Err(), "the conflict is a compile-time check")

	_, err := p.Compile()
	require.Error(t, err)
	require.True(t, IsPlanError(err))
}
