package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/shellspark"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Timeout time.Duration
	Dir     string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <query.yaml>",
		Short: "Compile and execute a query file",
		Long: `Compile a YAML query file and execute the resulting pipeline,
streaming its output to stdout.

Example:
  shellspark run ./queries/errors.yaml
  shellspark run --timeout 30s ./queries/revenue.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "maximum execution time (0 = unbounded)")
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "working directory for the pipeline")

	return cmd
}

func runQuery(opts *RunOptions, queryPath string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	pipeline, err := LoadQuery(queryPath)
	if err != nil {
		return outputError(formatter, err)
	}

	command, err := pipeline.CompileWith(opts.Toolset())
	if err != nil {
		return outputError(formatter, err)
	}
	slog.Debug("compiled pipeline", "command", command)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, stopping pipeline", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	result, err := pipeline.Run(ctx, shellspark.RunOptions{
		Dir:     opts.Dir,
		Timeout: opts.Timeout,
		Toolset: opts.Toolset(),
	})
	if err != nil {
		return outputError(formatter, err)
	}
	slog.Debug("pipeline finished", "exit_code", result.ExitCode, "duration", time.Since(start))

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprint(formatter.Writer, result.Stdout)
	if result.ExitCode != 0 && result.Stderr != "" {
		return WrapExitError(ExitFailure, "pipeline failed", fmt.Errorf("%s", result.Stderr))
	}
	return nil
}
