package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func salesPlan(value int64) Node {
	return Sort{
		Input: Agg{
			Input: GroupBy{
				Input: ColFilter{
					Input: Parse{
						Input:     Source{Pattern: "sales.csv"},
						Format:    FormatCSV,
						Delimiter: ",",
						HasHeader: true,
					},
					Column: "quantity",
					Op:     OpGt,
					Value:  IntValue(value),
				},
				Keys: []string{"region"},
			},
			Items: []AggItem{{Alias: "total", Column: "price", Fn: AggSum}},
		},
		Key:        "total",
		Descending: true,
	}
}

func TestHash_SamePlanSameHash(t *testing.T) {
	h1, err := Hash(salesPlan(0))
	require.NoError(t, err)
	h2, err := Hash(salesPlan(0))
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}

func TestHash_FieldChangeChangesHash(t *testing.T) {
	base, err := Hash(salesPlan(0))
	require.NoError(t, err)

	changed, err := Hash(salesPlan(1))
	require.NoError(t, err)
	require.NotEqual(t, base, changed)
}

func TestHash_ColumnOrderMatters(t *testing.T) {
	build := func(cols ...string) Node {
		return Select{
			Input: Parse{
				Input:     Source{Pattern: "users.json"},
				Format:    FormatJSON,
			},
			Columns: cols,
		}
	}

	h1, err := Hash(build("name", "email"))
	require.NoError(t, err)
	h2, err := Hash(build("email", "name"))
	require.NoError(t, err)
	require.NotEqual(t, h1, h2, "field order in Select is structural")
}

func TestHash_ValueTypeMatters(t *testing.T) {
	build := func(v Value) Node {
		return ColFilter{
			Input:  Parse{Input: Source{Pattern: "a.json"}, Format: FormatJSON},
			Column: "status",
			Op:     OpEq,
			Value:  v,
		}
	}

	asString, err := Hash(build(StringValue("400")))
	require.NoError(t, err)
	asInt, err := Hash(build(IntValue(400)))
	require.NoError(t, err)
	require.NotEqual(t, asString, asInt)
}

func TestHash_HostileStringsHash(t *testing.T) {
	hostile := "';|`$\"\n rm -rf"
	h, err := Hash(LineFilter{
		Input:   Source{Pattern: hostile},
		Kind:    LineContains,
		Pattern: hostile,
	})
	require.NoError(t, err)
	require.Len(t, h, 64)
}

func TestNodeFingerprint_IgnoresInput(t *testing.T) {
	a := ColFilter{
		Input:  Source{Pattern: "a.csv"},
		Column: "x",
		Op:     OpEq,
		Value:  StringValue("1"),
	}
	b := ColFilter{
		Input:  Source{Pattern: "totally-different.csv"},
		Column: "x",
		Op:     OpEq,
		Value:  StringValue("1"),
	}

	fa, err := NodeFingerprint(a)
	require.NoError(t, err)
	fb, err := NodeFingerprint(b)
	require.NoError(t, err)
	require.Equal(t, fa, fb)
}

func TestChain_LeafFirst(t *testing.T) {
	root := salesPlan(0)
	nodes := Chain(root)
	require.Len(t, nodes, 6)
	require.IsType(t, Source{}, nodes[0])
	require.IsType(t, Sort{}, nodes[5])

	src, ok := FindSource(root)
	require.True(t, ok)
	require.Equal(t, "sales.csv", src.Pattern)
}
