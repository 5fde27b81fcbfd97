package execute

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRun_CapturesOutput(t *testing.T) {
	res, err := Run(context.Background(), "printf 'a\\nb\\n'", Options{})
	require.NoError(t, err)
	require.Equal(t, "a\nb\n", res.Stdout)
	require.Equal(t, 0, res.ExitCode)
	require.NotEmpty(t, res.RunID.String())
}

func TestRun_NonZeroExitIsNotAnError(t *testing.T) {
	// grep's no-match contract: exit 1, empty output, no stderr.
	res, err := Run(context.Background(), "printf '' | grep -F nope", Options{})
	require.NoError(t, err)
	require.Equal(t, 1, res.ExitCode)
	require.Empty(t, res.Stdout)
}

func TestRun_TimeoutSurfacesAsExecutionError(t *testing.T) {
	_, err := Run(context.Background(), "sleep 5", Options{Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	require.True(t, IsExecutionError(err))
}

func TestStream_DeliversLinesAndStopsOnFalse(t *testing.T) {
	var lines []string
	err := Stream(context.Background(), "printf '1\\n2\\n3\\n'", Options{}, func(line string) bool {
		lines = append(lines, line)
		return len(lines) < 2
	})
	require.NoError(t, err)
	require.Equal(t, []string{"1", "2"}, lines)
}

func TestRun_RespectsWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	res, err := Run(context.Background(), "pwd", Options{Dir: dir})
	require.NoError(t, err)
	require.Equal(t, dir, strings.TrimSpace(res.Stdout))
}
