package compiler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/shellspark/internal/plan"
	"github.com/roach88/shellspark/internal/testutil"
)

func cachePlans() []plan.Node {
	var plans []plan.Node
	for _, pattern := range []string{"ERROR", "WARN", "FATAL", "timeout", "retry"} {
		plans = append(plans, plan.LineFilter{
			Input:   plan.Source{Pattern: "app.log"},
			Kind:    plan.LineContains,
			Pattern: pattern,
		})
	}
	plans = append(plans, plan.Select{
		Input:   plan.Parse{Input: plan.Source{Pattern: "u.json"}, Format: plan.FormatJSON},
		Columns: []string{"name", "email"},
	})
	plans = append(plans, plan.Limit{Input: plan.Source{Pattern: "big.log"}, N: 100})
	return plans
}

func TestCache_HitsAreByteEqualToFreshCompiles(t *testing.T) {
	fixture := testutil.FullToolset()
	c := New(fixture.Registry())
	plans := cachePlans()

	// Fresh reference commands from a compiler that never caches twice.
	want := make([]string, len(plans))
	for i, p := range plans {
		ref := New(testutil.FullToolset().Registry())
		cmd, err := ref.Compile(p)
		require.NoError(t, err)
		want[i] = cmd
	}

	// Shuffled lookups interleaved with clears.
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		i := rng.Intn(len(plans))
		cmd, err := c.Compile(plans[i])
		require.NoError(t, err)
		require.Equal(t, want[i], cmd, "round %d plan %d", round, i)

		if round%11 == 0 {
			c.ClearCache()
		}
	}
}

func TestCache_RepeatCompileHitsWithoutReassembly(t *testing.T) {
	c := New(testutil.FullToolset().Registry())
	root := cachePlans()[0]

	first, err := c.Compile(root)
	require.NoError(t, err)
	second, err := c.Compile(root)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCache_FingerprintChangeInvalidates(t *testing.T) {
	root := plan.LineFilter{
		Input:   plan.Source{Pattern: "app.log"},
		Kind:    plan.LineContains,
		Pattern: "ERROR",
	}

	withRg := New(testutil.FullToolset().Registry())
	cmd1, err := withRg.Compile(root)
	require.NoError(t, err)
	require.Contains(t, cmd1, "rg ")

	// Same plan, different toolset: the fingerprint differs, so the cache
	// key differs and the compile rebinds.
	withoutRg := New(testutil.FullToolset().Without("rg").Registry())
	cmd2, err := withoutRg.Compile(root)
	require.NoError(t, err)
	require.Contains(t, cmd2, "grep ")
	require.NotEqual(t, cmd1, cmd2)
}

func TestCache_FailedCompilesAreNotCached(t *testing.T) {
	c := New(testutil.FullToolset().Without("jq").Registry())
	root := plan.Select{
		Input:   plan.Parse{Input: plan.Source{Pattern: "a.json"}, Format: plan.FormatJSON},
		Columns: []string{"x"},
	}

	_, err := c.Compile(root)
	require.Error(t, err)

	// The same plan against a capable toolset compiles cleanly; nothing
	// partial leaked into shared state.
	ok := New(testutil.FullToolset().Registry())
	cmd, err := ok.Compile(root)
	require.NoError(t, err)
	require.NotEmpty(t, cmd)
}
