package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/applist/internal/adapter/input"
	"github.com/jmylchreest/applist/internal/adapter/output"
	"github.com/jmylchreest/applist/internal/dbus"
	"github.com/jmylchreest/applist/internal/engine"
	"github.com/jmylchreest/applist/internal/model"
	"github.com/jmylchreest/applist/internal/store"
)

var listOpts struct {
	events    string
	journal   string
	format    string
	template  string
	ungrouped bool
	grouped   bool
	filter    string
	output    string
	noTime    bool
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the current display list",
	Long: `Print the ordered display list.

Without --events or --journal the list is fetched from a running applistd.
If no daemon is running, events piped on stdin are replayed.

Events are newline-delimited JSON, one compositor fact per line:

  {"type":"window_created","id":"1","app_id":"firefox","title":"Mozilla Firefox","outputs":["DP-1"],"workspace":"1"}
  {"type":"workspace_focus_changed","workspace":"1"}
  {"type":"window_closed","id":"1"}

Examples:
  applist list
  applist list --events session.jsonl --format json
  applist list --journal ~/.local/share/applist/events.jsonl --ungrouped
  applist list --format dmenu | fuzzel --dmenu`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVar(&listOpts.events, "events", "",
		"Replay events from a source (file path, '-' for stdin, exec:<command>)")
	listCmd.Flags().StringVar(&listOpts.journal, "journal", "",
		"Replay events from an applistd journal file")
	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", string(output.FormatPlain),
		"Output format (plain, json, yaml, dmenu, keys)")
	listCmd.Flags().StringVar(&listOpts.template, "template", "",
		"Go template for dmenu format (default: display.dmenu_template)")
	listCmd.Flags().BoolVar(&listOpts.ungrouped, "ungrouped", false,
		"Show one item per window (replay only)")
	listCmd.Flags().BoolVar(&listOpts.grouped, "grouped", false,
		"Group windows by application (replay only)")
	listCmd.Flags().StringVar(&listOpts.filter, "filter", "",
		"Visibility filter: ActiveWorkspace or ConfiguredOutput (replay only)")
	listCmd.Flags().StringVar(&listOpts.output, "output", "",
		"Bound output for ConfiguredOutput filtering (replay only)")
	listCmd.Flags().BoolVar(&listOpts.noTime, "no-time", false,
		"Hide relative open times")
	listCmd.MarkFlagsMutuallyExclusive("events", "journal")
	listCmd.MarkFlagsMutuallyExclusive("grouped", "ungrouped")
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormatType(listOpts.format)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	var items []model.DisplayItem
	if listOpts.events == "" && listOpts.journal == "" {
		items, err = fetchDaemonItems(ctx)
		if errors.Is(err, dbus.ErrServiceUnavailable) {
			var source string
			source, err = fallbackSource(err, stdinIsPipe())
			if err == nil {
				logger.Debug("daemon not running, replaying stdin")
				items, err = replayList(ctx, source)
			}
		}
	} else {
		items, err = replayList(ctx, listOpts.events)
	}
	if err != nil {
		return err
	}

	opts := output.DefaultFormatterOptions()
	opts.ShowTime = !listOpts.noTime
	opts.Template = listOpts.template
	if opts.Template == "" {
		opts.Template = cfg.Display.DmenuTmpl
	}

	return output.NewFormatter(format, opts).Format(os.Stdout, items)
}

// fallbackSource picks the replay source when the daemon is not running.
// An interactive stdin would block forever, so it is refused.
func fallbackSource(daemonErr error, stdinPiped bool) (string, error) {
	if !stdinPiped {
		return "", fmt.Errorf("%w (start applistd, pass --events, or pipe events on stdin)", daemonErr)
	}
	return "-", nil
}

func fetchDaemonItems(ctx context.Context) ([]model.DisplayItem, error) {
	client, err := dbus.NewClient(logger)
	if err != nil {
		return nil, err
	}
	return client.Items(ctx)
}

// replayList feeds events through a local engine and returns the final list.
func replayList(ctx context.Context, source string) ([]model.DisplayItem, error) {
	events, err := loadEvents(ctx, source)
	if err != nil {
		return nil, err
	}

	replayCfg := *cfg
	if listOpts.ungrouped {
		replayCfg.AppList.UngroupedWindows = true
	}
	if listOpts.grouped {
		replayCfg.AppList.UngroupedWindows = false
	}
	if listOpts.filter != "" {
		mode, err := model.ParseFilterMode(listOpts.filter)
		if err != nil {
			return nil, err
		}
		replayCfg.AppList.SetFilterMode(mode)
	}
	if listOpts.output != "" {
		replayCfg.Display.BoundOutput = listOpts.output
	}

	eng := engine.New(&replayCfg, nil, logger)
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- eng.Run(runCtx) }()
	defer func() {
		stop()
		<-done
	}()

	for _, ev := range events {
		if err := eng.HandleEvent(ctx, ev); err != nil {
			return nil, err
		}
	}
	if err := eng.Flush(ctx); err != nil {
		return nil, err
	}

	logger.Debug("replayed events", "count", len(events), "items", len(eng.Items()))
	return eng.Items(), nil
}

func loadEvents(ctx context.Context, source string) ([]model.Event, error) {
	if listOpts.journal != "" {
		records, err := store.ReadJournal(listOpts.journal)
		if err != nil {
			return nil, fmt.Errorf("failed to read journal: %w", err)
		}
		return store.Events(records), nil
	}

	src, err := input.NewSource(source, logger)
	if err != nil {
		return nil, err
	}
	return input.ReadAll(ctx, src)
}
