package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shellspark"
)

// RootOptions holds the global flags and the Toolset every subcommand
// compiles against. The toolset is built once in the root pre-run, so
// `--awk mawk compile q.yaml` and `tools` see the same resolutions.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Tool overrides, layered over the SHELLSPARK_* environment.
	Awk    string
	Grep   string
	Sort   string
	JQ     string
	TmpDir string

	toolset *shellspark.Toolset
}

// Toolset returns the toolset assembled from the global flags. The root
// pre-run populates it; the accessor exists for tests that drive a
// subcommand's run function directly.
func (o *RootOptions) Toolset() *shellspark.Toolset {
	if o.toolset == nil {
		o.toolset = shellspark.NewToolset(shellspark.ToolsetConfig{
			Awk:    o.Awk,
			Grep:   o.Grep,
			Sort:   o.Sort,
			JQ:     o.JQ,
			TmpDir: o.TmpDir,
		})
	}
	return o.toolset
}

// NewRootCommand creates the root command for the shellspark CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "shellspark",
		Short: "shellspark - compile declarative queries to shell pipelines",
		Long:  "Compile declarative data-transformation queries into single shell command lines built from awk, grep, jq, and sort.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.Format {
			case "text", "json":
			default:
				return fmt.Errorf("invalid format %q: must be \"text\" or \"json\"", opts.Format)
			}
			// Bind the toolset up front so every subcommand, and any
			// verbose logging, shares one set of resolutions.
			opts.Toolset()
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.Awk, "awk", "", "awk binary to bind (default: SHELLSPARK_AWK, then mawk/gawk/awk)")
	flags.StringVar(&opts.Grep, "grep", "", "line matcher to bind (default: SHELLSPARK_GREP, then rg/grep)")
	flags.StringVar(&opts.Sort, "sort", "", "sort binary to bind (default: SHELLSPARK_SORT)")
	flags.StringVar(&opts.JQ, "jq", "", "jq binary to bind (default: SHELLSPARK_JQ)")
	flags.StringVar(&opts.TmpDir, "tmpdir", "", "spool directory for sort -T (default: TMPDIR, then /tmp)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewToolsCommand(opts))

	return cmd
}
