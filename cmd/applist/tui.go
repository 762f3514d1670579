package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/applist/internal/adapter/input"
	"github.com/jmylchreest/applist/internal/config"
	"github.com/jmylchreest/applist/internal/dbus"
	"github.com/jmylchreest/applist/internal/engine"
	"github.com/jmylchreest/applist/internal/model"
	"github.com/jmylchreest/applist/internal/tui"
)

var tuiOpts struct {
	events string
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive app list view",
	Long: `Launch the interactive terminal view of the app list.

With --events (or events piped on stdin) the TUI runs its own engine and
updates live as events arrive; pin changes are saved to the config file.
Otherwise it follows a running applistd over D-Bus.

Key bindings:
  j/k, ↑/↓    Navigate list
  p           Pin or unpin the selected application
  K/J         Move the selected favorite up/down
  g           Toggle grouped/ungrouped view
  y           Copy app id to clipboard
  Y           Copy the list as YAML
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().StringVar(&tuiOpts.events, "events", "",
		"Event source (file path, '-' for stdin, exec:<command>)")
}

func stdinIsPipe() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice == 0
}

func runTUI(cmd *cobra.Command, args []string) error {
	source := tuiOpts.events
	if source == "" && stdinIsPipe() {
		source = "-"
	}

	if source == "" {
		client, err := dbus.NewClient(logger)
		if err != nil {
			if errors.Is(err, dbus.ErrServiceUnavailable) {
				return fmt.Errorf("%w; pass --events to run a local engine", err)
			}
			return err
		}
		ctrl := newRemoteController(cmd.Context(), client)
		defer ctrl.stop()
		return tui.Run(tui.RunOptions{Config: cfg, Controller: ctrl})
	}

	return runLocalTUI(cmd.Context(), source)
}

// runLocalTUI runs an engine fed by source and persists favorites to the
// config file.
func runLocalTUI(parent context.Context, source string) error {
	src, err := input.NewSource(source, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	eng := engine.New(cfg, config.NewFilePersister(configPath()), logger)
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	events := make(chan model.Event, 64)
	go func() {
		if err := src.Stream(ctx, events); err != nil {
			logger.Warn("event source stopped", "source", src.Name(), "error", err)
		}
		close(events)
	}()
	go func() {
		for ev := range events {
			if err := eng.HandleEvent(ctx, ev); err != nil {
				return
			}
		}
	}()

	err = tui.Run(tui.RunOptions{
		Config:     cfg,
		Controller: eng,
		InputTTY:   source == "-",
	})
	cancel()
	<-done
	return err
}

// remoteController drives the TUI from a running daemon.
type remoteController struct {
	client *dbus.Client
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	version uint64
}

func newRemoteController(parent context.Context, client *dbus.Client) *remoteController {
	ctx, cancel := context.WithCancel(parent)
	return &remoteController{client: client, ctx: ctx, cancel: cancel}
}

func (r *remoteController) stop() {
	r.cancel()
}

// Subscribe publishes the daemon's list now and after every ItemsChanged
// signal.
func (r *remoteController) Subscribe() <-chan engine.Update {
	ch := make(chan engine.Update, 1)

	publish := func() {
		items, err := r.client.Items(r.ctx)
		if err != nil {
			logger.Warn("failed to fetch items", "error", err)
			return
		}
		r.mu.Lock()
		r.version++
		u := engine.Update{Version: r.version, Items: items}
		r.mu.Unlock()

		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
	}

	go func() {
		defer close(ch)
		publish()
		if err := r.client.WatchItems(r.ctx, func(uint32) { publish() }); err != nil {
			logger.Warn("stopped watching daemon", "error", err)
		}
	}()
	return ch
}

func (r *remoteController) Unsubscribe(<-chan engine.Update) {
	r.cancel()
}

func (r *remoteController) Pin(ctx context.Context, appID string) error {
	return r.client.Pin(ctx, appID)
}

func (r *remoteController) Unpin(ctx context.Context, appID string) error {
	return r.client.Unpin(ctx, appID)
}

func (r *remoteController) Move(ctx context.Context, appID string, index int) error {
	return r.client.Move(ctx, appID, index)
}

func (r *remoteController) SetUngrouped(context.Context, bool) error {
	return errors.New("grouping is set by the daemon configuration (ungrouped_windows)")
}
