package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// effectiveConfig is what `courses config` prints.
type effectiveConfig struct {
	ConfigDir string   `yaml:"config_dir"`
	ConfigUse string   `yaml:"config_file,omitempty"`
	Resolved  string   `yaml:"resolved_data_dir"`
	Settings  settings `yaml:"settings"`
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.settings()
			if err != nil {
				return err
			}
			dataDir, err := a.resolveDataDir()
			if err != nil {
				return sysError("resolve data dir: %w", err)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(effectiveConfig{
				ConfigDir: a.configDir,
				ConfigUse: a.v.ConfigFileUsed(),
				Resolved:  dataDir,
				Settings:  s,
			}); err != nil {
				return sysError("encode config: %w", err)
			}
			return enc.Close()
		},
	}
}
