// Package commands implements the trellis command line.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "trellis",
		Short: "Scaffold and inspect trellis applications",
		Long: `trellis creates application skeletons wired with the DI module and
the chi controller adapter, and checks configuration files.

Use "trellis [command] --help" for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newNewCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	root.CompletionOptions.DisableDefaultCmd = true

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "trellis %s (commit: %s)\n", Version, Commit)
		},
	}
}
