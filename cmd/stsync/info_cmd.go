package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/stlauncher/stsync/internal/syncsdk"
)

func (c *cli) newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <server-url>",
		Short: "Show a sync server's health and data summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appCfg, err := c.appConfig()
			if err != nil {
				return err
			}

			sdk, err := syncsdk.New(args[0], appCfg.Client.Timeout)
			if err != nil {
				return err
			}
			defer sdk.Close()

			health, err := sdk.Health(cmd.Context())
			if err != nil {
				return err
			}
			info, err := sdk.Info(cmd.Context())
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render(sdk.BaseURL()))
			fmt.Fprintln(w, kv("Status", green.Render(health.Status)))
			fmt.Fprintln(w, kv("Version", health.Version))
			fmt.Fprintln(w, kv("Data", info.DataPath))
			fmt.Fprintln(w, kv("Files", info.FileCount))
			fmt.Fprintln(w, kv("Size", humanize.Bytes(uint64(info.TotalSize))))
			fmt.Fprintln(w, kv("Server time", health.Timestamp))
			return nil
		},
	}
	return cmd
}
