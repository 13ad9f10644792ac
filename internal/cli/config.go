package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/graphwriter/pkg/config"
)

func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return config.Encode(stdout, c.cfg)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := c.cfgSource
			if path == "" {
				path = "(defaults only)"
			}
			printKeyValue("config", path)
			return nil
		},
	})
	return cmd
}
