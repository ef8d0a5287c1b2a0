package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the configuration and the catalog data directory",
		Long: `Creates the config directory with a default config.yaml and the data
directory with empty JSONL tables. Existing files are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, dataDir, err := a.attach()
			if err != nil {
				return err
			}
			if err := backend.Detach(); err != nil {
				return sysError("detach catalog: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config: %s\n", a.configDir)
			fmt.Fprintf(out, "Data:   %s\n", dataDir)
			return nil
		},
	}
}
