package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/stlauncher/stsync/internal/server/accesslog"
	"github.com/stlauncher/stsync/internal/utils"
)

var errNoTransferLog = errors.New("no transfer log, set server.access_log_dir or pass --access-log")

func (c *cli) newTransfersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfers [device]",
		Short: "Show which devices pulled data from this server",
		Long:  "Without a device, lists the devices seen by the server. With one, prints its most recent transfers.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.bindFlags(cmd, map[string]string{"server.access_log_dir": "access-log"}); err != nil {
				return err
			}

			appCfg, err := c.appConfig()
			if err != nil {
				return err
			}
			dir := appCfg.Server.AccessLogDir
			if dir != "" {
				if dir, err = utils.ResolvePath(dir); err != nil {
					return err
				}
			}
			if dir == "" || !utils.DirExists(dir) {
				return errNoTransferLog
			}

			transfers, err := accesslog.New(dir)
			if err != nil {
				return err
			}
			defer transfers.Close()

			w := cmd.OutOrStdout()
			if len(args) == 0 {
				return printDevices(w, transfers)
			}

			limit, _ := cmd.Flags().GetInt("limit")
			entries, err := transfers.Entries(args[0], limit)
			if err != nil {
				return err
			}
			printTransfers(w, args[0], entries)
			return nil
		},
	}

	cmd.Flags().String("access-log", "", "directory of the server's transfer logs")
	cmd.Flags().IntP("limit", "n", 20, "number of transfers to show")

	return cmd
}

func printDevices(w io.Writer, transfers *accesslog.Logger) error {
	devices, err := transfers.Devices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(w, gray.Render("No transfers logged yet"))
		return nil
	}

	fmt.Fprintln(w, titleStyle.Render("Devices"))
	for _, device := range devices {
		last, err := transfers.Entries(device, 1)
		if err != nil || len(last) == 0 {
			fmt.Fprintln(w, kv(device, gray.Render("-")))
			continue
		}
		fmt.Fprintln(w, kv(device, "last "+last[0].Endpoint+" "+humanize.Time(last[0].Timestamp)))
	}
	return nil
}

func printTransfers(w io.Writer, device string, entries []accesslog.Entry) {
	fmt.Fprintln(w, titleStyle.Render("Transfers of "+device))
	if len(entries) == 0 {
		fmt.Fprintln(w, gray.Render("None"))
		return
	}

	for _, e := range entries {
		status := green.Render(fmt.Sprint(e.Status))
		if e.Status >= 400 {
			status = red.Render(fmt.Sprint(e.Status))
		}
		target := e.Endpoint
		if e.File != "" {
			target += " " + e.File
		}
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			gray.Render(e.Timestamp.Local().Format("2006-01-02 15:04:05")),
			status,
			target,
			humanize.Bytes(uint64(max(e.Bytes, 0))),
			gray.Render(fmt.Sprintf("%dms", e.Millis)))
	}
}
