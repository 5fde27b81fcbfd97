package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/shellspark"
)

// ToolsReport summarizes the resolved toolset.
type ToolsReport struct {
	Tools       []shellspark.ToolInfo `json:"tools"`
	CPUs        int                   `json:"cpus"`
	Fingerprint string                `json:"fingerprint"`
}

// NewToolsCommand creates the tools command.
func NewToolsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show the resolved toolset and its fingerprint",
		Long: `Discover the awk, grep, jq, and sort binaries the compiler would
bind to, honoring the --awk/--grep/--sort/--jq overrides and the
SHELLSPARK_* environment, and print the toolset fingerprint used in the
compile cache key.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTools(rootOpts, cmd)
		},
	}

	return cmd
}

func runTools(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	toolset := opts.Toolset()
	report := &ToolsReport{
		Tools: toolset.Tools(),
		CPUs:  toolset.CPUCount(),
	}

	fingerprint, err := toolset.Fingerprint()
	if err != nil {
		return outputError(formatter, err)
	}
	report.Fingerprint = fingerprint

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintln(formatter.Writer, "Resolved toolset:")
	for _, info := range report.Tools {
		if !info.Present {
			fmt.Fprintf(formatter.Writer, "  %-5s absent\n", info.Name)
			continue
		}
		line := fmt.Sprintf("  %-5s %s", info.Name, info.Path)
		if info.Variant != "" {
			line += " (" + info.Variant + ")"
		}
		if info.Notes != "" {
			line += " [" + info.Notes + "]"
		}
		fmt.Fprintln(formatter.Writer, line)
	}
	fmt.Fprintf(formatter.Writer, "  cpus  %d\n", report.CPUs)
	fmt.Fprintf(formatter.Writer, "\nFingerprint: %s\n", report.Fingerprint)
	return nil
}
