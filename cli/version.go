package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"slava0135/smtshim/smt"
)

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the smtshim version and the solvers it knows how to start.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "smtshim v%s\n", version)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "solvers: %v\n", smt.Solvers())
		},
	}
}
