package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/courses/internal/seed"
	"github.com/mesh-intelligence/courses/pkg/sqlite"
	"github.com/mesh-intelligence/courses/pkg/types"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace the catalog with the demo courses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, dataDir, err := a.attach()
			if err != nil {
				return err
			}
			defer backend.Detach()

			sum, err := seed.Load(backend)
			if err != nil {
				return sysError("seed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d courses, %d lessons, %d quizzes into %s\n",
				sum.Courses, sum.Lessons, sum.Quizzes, dataDir)
			return nil
		},
	}
}

// attach opens the catalog in the resolved data directory.
func (a *app) attach() (types.Catalog, string, error) {
	dataDir, err := a.resolveDataDir()
	if err != nil {
		return nil, "", sysError("resolve data dir: %w", err)
	}
	backend := sqlite.NewBackend()
	if err := backend.Attach(types.Config{Backend: types.BackendSQLite, DataDir: dataDir}); err != nil {
		return nil, "", sysError("attach catalog: %w", err)
	}
	return backend, dataDir, nil
}
