package cli

import (
	"bytes"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/courses/internal/imagerecipe"
)

func newDockerfileCmd() *cobra.Command {
	var (
		preset string
		output string
	)
	cmd := &cobra.Command{
		Use:   "dockerfile",
		Short: "Print the container build recipe as a Dockerfile",
		Long: `Renders one of the built-in image recipes. The "go" preset builds this
binary; the "python" preset packages an ASGI app served by uvicorn. Both
listen on 0.0.0.0:8000.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recipe, ok := imagerecipe.Preset(preset)
			if !ok {
				return userError("unknown preset %q (want one of: %s)", preset, strings.Join(presetNames(), ", "))
			}

			var buf bytes.Buffer
			if err := recipe.Render(&buf); err != nil {
				return sysError("render dockerfile: %w", err)
			}
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(buf.Bytes())
				return err
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return sysError("write %s: %w", output, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", imagerecipe.PresetGo, "recipe preset: go or python")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func presetNames() []string {
	names := []string{imagerecipe.PresetGo, imagerecipe.PresetPython}
	sort.Strings(names)
	return names
}
