package shellspark

import (
	"context"
	"time"

	"github.com/roach88/shellspark/internal/execute"
)

// Result is one pipeline execution.
type Result struct {
	// RunID tags the execution for logs and traces.
	RunID string

	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// RunOptions customises execution.
type RunOptions struct {
	Dir     string
	Timeout time.Duration

	// Toolset binds compilation; nil means the process-wide default.
	Toolset *Toolset
}

func (o RunOptions) toolset() *Toolset {
	if o.Toolset != nil {
		return o.Toolset
	}
	return DefaultToolset()
}

// Run compiles the pipeline and executes it, returning the captured
// output. A non-zero exit (such as grep's no-match case) is reported in
// the result's exit code, not as an error.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	command, err := p.CompileWith(opts.toolset())
	if err != nil {
		return nil, err
	}
	res, err := execute.Run(ctx, command, execute.Options{Dir: opts.Dir, Timeout: opts.Timeout})
	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:    res.RunID.String(),
		Command:  res.Command,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		ExitCode: res.ExitCode,
		Duration: res.Duration,
	}, nil
}

// Stream compiles the pipeline, executes it, and delivers stdout line by
// line to fn. Streaming stops when fn returns false or ctx is cancelled.
func (p *Pipeline) Stream(ctx context.Context, opts RunOptions, fn func(line string) bool) error {
	command, err := p.CompileWith(opts.toolset())
	if err != nil {
		return err
	}
	return execute.Stream(ctx, command, execute.Options{Dir: opts.Dir, Timeout: opts.Timeout}, fn)
}
