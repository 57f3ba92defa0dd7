package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stlauncher/stsync/internal/client/sync"
	"github.com/stlauncher/stsync/internal/discovery"
)

var errNoServer = errors.New("no sync server found on the local network, pass a server URL")

func (c *cli) newPullCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull [server-url]",
		Short: "Bring the local data directory up to date with a sync server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.bindFlags(cmd, map[string]string{
				"client.data_dir":         "data-dir",
				"client.method":           "method",
				"client.timeout":          "timeout",
				"client.backup_retention": "retention",
				"client.backup_keep":      "keep",
			}); err != nil {
				return err
			}
			if len(args) == 1 {
				c.v.Set("client.server_url", args[0])
			}
			if noBackup, _ := cmd.Flags().GetBool("no-backup"); noBackup {
				c.v.Set("client.backup", false)
			}

			appCfg, err := c.appConfig()
			if err != nil {
				return err
			}

			if appCfg.Client.ServerURL == "" {
				server, err := findServer(cmd.Context(), cmd.OutOrStdout(), &appCfg.Discovery)
				if err != nil {
					return err
				}
				appCfg.Client.ServerURL = server.URL
			}

			return runPull(cmd.Context(), cmd.OutOrStdout(), &appCfg.Client)
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("data-dir", "d", "", "local data directory (auto-detected when empty)")
	cmd.Flags().StringP("method", "m", "", "auto, auto-incremental, zip or incremental")
	cmd.Flags().Bool("no-backup", false, "do not back up the data directory before a full sync")
	cmd.Flags().Duration("timeout", 0, "request timeout")
	cmd.Flags().String("retention", "", "backup retention: keep-forever, keep-n or delete-on-success")
	cmd.Flags().Int("keep", 0, "backups to keep with keep-n retention")

	return cmd
}

func runPull(ctx context.Context, w io.Writer, cfg *config.Config) error {
	client, err := sync.New(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	slog.Info("sync client config", "config", cfg)

	res, err := client.Pull(ctx, cfg.Method)
	if err != nil {
		return err
	}

	printResult(w, res)
	if !res.Success {
		return fmt.Errorf("sync failed: %s", res.Failure)
	}
	return nil
}

func printResult(w io.Writer, res *sync.Result) {
	fmt.Fprintln(w)
	if res.Success {
		fmt.Fprintln(w, green.Bold(true).Render("Sync complete"))
	} else {
		fmt.Fprintln(w, red.Bold(true).Render("Sync failed"))
		fmt.Fprintln(w, kv("Reason", red.Render(res.Failure)))
	}

	strategy := string(res.Strategy)
	if res.FellBack {
		strategy += yellow.Render(" (fallback)")
	}
	fmt.Fprintln(w, kv("Strategy", strategy))
	fmt.Fprintln(w, kv("Downloaded", fmt.Sprintf("%d files, %s", res.Downloaded, humanize.Bytes(uint64(res.Bytes)))))
	fmt.Fprintln(w, kv("Deleted", res.Deleted))
	if res.DownloadErrors+res.DeleteErrors > 0 {
		fmt.Fprintln(w, kv("Errors", yellow.Render(fmt.Sprintf("%d download, %d delete", res.DownloadErrors, res.DeleteErrors))))
	}
	if res.BackupPath != "" {
		fmt.Fprintln(w, kv("Backup", res.BackupPath))
	}
	if res.Restored {
		fmt.Fprintln(w, kv("Restored", yellow.Render("local data restored from backup")))
	}
	if res.Partial {
		fmt.Fprintln(w, kv("Local data", yellow.Render("may be partial, no backup was taken")))
	}
	fmt.Fprintln(w, kv("Duration", res.Duration.Round(time.Millisecond)))
}

// findServer scans the LAN and lets the operator choose when more than one server answers
func findServer(ctx context.Context, w io.Writer, cfg *discovery.Config) (*discovery.Server, error) {
	scanner, err := discovery.NewScanner(cfg)
	if err != nil {
		return nil, err
	}
	defer scanner.Close()

	fmt.Fprintln(w, gray.Render("No server given, searching the local network..."))
	servers, err := scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}

	switch {
	case len(servers) == 0:
		return nil, errNoServer
	case len(servers) == 1:
		fmt.Fprintln(w, kv("Found", green.Render(servers[0].URL)))
		return &servers[0], nil
	case !isatty.IsTerminal(os.Stdin.Fd()):
		slog.Warn("multiple sync servers found, using the first", "url", servers[0].URL, "found", len(servers))
		return &servers[0], nil
	default:
		return pickServer(servers)
	}
}
