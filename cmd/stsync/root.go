package main

import (
	"github.com/spf13/cobra"
	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stlauncher/stsync/internal/version"
)

func newRootCmd() *cobra.Command {
	c := newCLI()

	rootCmd := &cobra.Command{
		Use:           "stsync",
		Short:         "Sync a SillyTavern data directory between devices",
		Version:       version.Detailed(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig(cmd)
		},
	}
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "stsync config file")

	rootCmd.AddCommand(
		c.newServeCmd(),
		c.newPullCmd(),
		c.newDiscoverCmd(),
		c.newInfoCmd(),
		c.newStatusCmd(),
		c.newTransfersCmd(),
		c.newConfigCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
