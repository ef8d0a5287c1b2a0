package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the courses release, overridden at build time with
// -ldflags "-X github.com/mesh-intelligence/courses/internal/cli.Version=...".
var Version = "v0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the courses version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "courses", Version)
		},
	}
}
