package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/stlauncher/stsync/internal/discovery"
)

func (c *cli) newDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find sync servers on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.bindFlags(cmd, map[string]string{
				"discovery.ports":       "port",
				"discovery.full_scan":   "full",
				"discovery.timeout":     "timeout",
				"discovery.concurrency": "concurrency",
			}); err != nil {
				return err
			}

			appCfg, err := c.appConfig()
			if err != nil {
				return err
			}

			scanner, err := discovery.NewScanner(&appCfg.Discovery)
			if err != nil {
				return err
			}
			defer scanner.Close()

			servers, err := scanner.Scan(cmd.Context())
			if err != nil {
				return err
			}

			printServers(cmd.OutOrStdout(), servers)
			return nil
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().IntSlice("port", []int{discovery.DefaultPort}, "ports to probe")
	cmd.Flags().Bool("full", false, "probe every host of the /24")
	cmd.Flags().Duration("timeout", discovery.DefaultTimeout, "per-probe timeout")
	cmd.Flags().Int("concurrency", discovery.DefaultConcurrency, "probes in flight")

	return cmd
}

func printServers(w io.Writer, servers []discovery.Server) {
	if len(servers) == 0 {
		fmt.Fprintln(w, yellow.Render("No sync servers found"))
		return
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Found %d sync server(s)", len(servers))))
	for _, s := range servers {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			green.Render(s.URL),
			s.DataPath,
			gray.Render(fmt.Sprintf("%dms", s.Latency.Milliseconds())))
	}
}
