package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/stlauncher/stsync/internal/client/config"
	"github.com/stlauncher/stsync/internal/manifest"
)

func (c *cli) newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the local data directory and the configured server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.bindFlags(cmd, map[string]string{
				"client.data_dir": "data-dir",
			}); err != nil {
				return err
			}

			appCfg, err := c.appConfig()
			if err != nil {
				return err
			}

			return printStatus(cmd.OutOrStdout(), &appCfg.Client)
		},
	}

	cmd.Flags().StringP("data-dir", "d", "", "local data directory (auto-detected when empty)")
	return cmd
}

func printStatus(w io.Writer, cfg *config.Config) error {
	if cfg.DataDir == "" {
		detected, err := config.DetectDataDir(false)
		if err != nil {
			return err
		}
		cfg.DataDir = detected
	}

	fmt.Fprintln(w, titleStyle.Render("Local data"))
	fmt.Fprintln(w, kv("Directory", cfg.DataDir))

	m, err := manifest.NewBuilder(cfg.DataDir, manifest.WithIgnore(cfg.Ignore...)).Build()
	if err != nil {
		fmt.Fprintln(w, kv("State", yellow.Render("not created yet")))
	} else {
		fmt.Fprintln(w, kv("Files", len(m)))
		fmt.Fprintln(w, kv("Size", humanize.Bytes(uint64(m.TotalSize()))))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Sync settings"))
	server := cfg.ServerURL
	if server == "" {
		server = gray.Render("discover on the local network")
	}
	fmt.Fprintln(w, kv("Server", server))
	fmt.Fprintln(w, kv("Method", cfg.Method))
	fmt.Fprintln(w, kv("Backup", cfg.Backup))
	fmt.Fprintln(w, kv("Retention", cfg.BackupRetention))
	return nil
}
