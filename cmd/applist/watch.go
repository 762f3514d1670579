package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/applist/internal/adapter/output"
	"github.com/jmylchreest/applist/internal/dbus"
)

var watchOpts struct {
	format string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the display list every time the daemon's list changes",
	Long: `Follow the daemon's ItemsChanged signal and print the list after each
change. With --format json every update is one compact JSON line, suitable
for status bar scripts.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchOpts.format, "format", "f", string(output.FormatJSON),
		"Output format (plain, json, yaml, dmenu, keys)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormatType(watchOpts.format)
	if err != nil {
		return err
	}

	client, err := dbus.NewClient(logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := output.DefaultFormatterOptions()
	opts.Compact = true
	opts.Template = cfg.Display.DmenuTmpl
	formatter := output.NewFormatter(format, opts)

	emit := func() {
		items, err := client.Items(ctx)
		if err != nil {
			logger.Warn("failed to fetch items", "error", err)
			return
		}
		if err := formatter.Format(os.Stdout, items); err != nil {
			logger.Warn("failed to write items", "error", err)
		}
	}

	emit()
	return client.WatchItems(ctx, func(count uint32) {
		logger.Debug("items changed", "count", count)
		emit()
	})
}
