package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stlauncher/stsync/internal/discovery"
	"github.com/stlauncher/stsync/internal/server"
	"github.com/stlauncher/stsync/internal/utils"
	"github.com/stlauncher/stsync/internal/version"
)

func (c *cli) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local data directory to other devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.bindFlags(cmd, map[string]string{
				"server.data_dir":       "data-dir",
				"server.host":           "host",
				"server.port":           "port",
				"server.rate_limit":     "rate-limit",
				"server.access_log_dir": "access-log",
			}); err != nil {
				return err
			}

			appCfg, err := c.appConfig()
			if err != nil {
				return err
			}
			cfg := &appCfg.Server

			if cfg.DataDir == "" {
				detected, err := config.DetectDataDir(true)
				if err != nil {
					return err
				}
				cfg.DataDir = detected
			}

			if utils.PortInUse(cfg.Host, cfg.Port) {
				return fmt.Errorf("%s is already in use, is another sync server running? pick another --port", cfg.Addr())
			}

			srv, err := server.New(cfg)
			if err != nil {
				return err
			}

			slog.Info("sync server config", "config", cfg)
			printServeBanner(cmd.OutOrStdout(), cfg, discovery.LocalIPv4())

			defer slog.Info("Bye!")
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("data-dir", "d", "", "data directory to serve (auto-detected when empty)")
	cmd.Flags().String("host", server.DefaultHost, "address to listen on")
	cmd.Flags().IntP("port", "p", server.DefaultPort, "port to listen on")
	cmd.Flags().String("rate-limit", "", `per-client request limit, e.g. "1000-M"`)
	cmd.Flags().String("access-log", "", "directory for per-device transfer logs")

	return cmd
}

func printServeBanner(w io.Writer, cfg *server.Config, lanIP string) {
	lanURL := "http://" + lanIP + ":" + strconv.Itoa(cfg.Port)

	fmt.Fprintln(w, titleStyle.Render(version.ShortWithApp()+" sync server"))
	fmt.Fprintln(w, kv("Data", cfg.DataDir))
	fmt.Fprintln(w, kv("Listening", cfg.Addr()))
	fmt.Fprintln(w, kv("LAN URL", green.Render(lanURL)))
	fmt.Fprintln(w)
	for _, ep := range []struct{ path, desc string }{
		{"/health", "health check"},
		{"/manifest", "file manifest"},
		{"/zip", "full data bundle"},
		{"/file?path=", "single file"},
		{"/info", "server info"},
	} {
		fmt.Fprintln(w, "  "+cyan.Render(lanURL+ep.path)+" "+gray.Render(ep.desc))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, gray.Render("On the other device run: stsync pull "+lanURL))
}
