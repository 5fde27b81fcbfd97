package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/shellspark"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompileResult holds the compiled command and the plan hash.
type CompileResult struct {
	Command string `json:"command"`
	Hash    string `json:"hash"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <query.yaml>",
		Short: "Compile a query file to a shell command",
		Long: `Compile a YAML query file into the shell command line it denotes.

The command is printed without being executed, for inspection, caching,
or embedding in scripts.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the command to a file instead of stdout")

	return cmd
}

func runCompile(opts *CompileOptions, queryPath string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("loaded query from %s", queryPath)

	command, err := pipeline.CompileWith(opts.Toolset())
	if err != nil {
		return outputError(formatter, err)
	}
	hash, err := pipeline.Hash()
	if err != nil {
		return outputError(formatter, err)
	}
	if fingerprint, fpErr := opts.Toolset().Fingerprint(); fpErr == nil {
		formatter.VerboseLog("plan hash %s, toolset %s", hash, fingerprint)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(command+"\n"), 0644); err != nil {
			return outputError(formatter, WrapExitError(ExitCommandError, "writing output file", err))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(CompileResult{Command: command, Hash: hash})
	}
	fmt.Fprintln(formatter.Writer, command)
	return nil
}

// outputError renders an error in the configured format and converts it
// to an ExitError so main exits with the right code.
func outputError(formatter *OutputFormatter, err error) error {
	code := classifyError(err)
	_ = formatter.Error(code, err.Error())
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return WrapExitError(ExitCommandError, code, err)
}

// classifyError maps compiler error kinds to CLI error codes.
func classifyError(err error) string {
	switch {
	case shellspark.IsPlanError(err):
		return ErrCodePlan
	case shellspark.IsUnsupportedEnvironment(err):
		return ErrCodeToolset
	case shellspark.IsExecutionError(err):
		return ErrCodeExecution
	default:
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return loadErr.Code
		}
		return ErrCodeGeneric
	}
}
