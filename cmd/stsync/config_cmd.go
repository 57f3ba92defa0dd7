package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *cli) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := c.appConfig()
			if err != nil {
				return err
			}

			out, err := yaml.Marshal(appCfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			if used := c.v.ConfigFileUsed(); used != "" {
				fmt.Fprintln(cmd.OutOrStdout(), gray.Render("# "+used))
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
