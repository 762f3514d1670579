// Package main is the entry point for the applistd app list daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/applist/internal/adapter/input"
	"github.com/jmylchreest/applist/internal/config"
	"github.com/jmylchreest/applist/internal/dbus"
	"github.com/jmylchreest/applist/internal/engine"
	"github.com/jmylchreest/applist/internal/model"
	"github.com/jmylchreest/applist/internal/store"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	events := flag.String("events", "-", "Event source (file path, '-' for stdin, exec:<command>)")
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/applist/config.toml)")
	noDBus := flag.Bool("no-dbus", false, "Do not export the D-Bus service")
	resetJournal := flag.Bool("reset-journal", false, "Clear the event journal on startup")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("applistd version", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	path := *configPath
	if path == "" {
		path = config.ConfigPath()
	}

	if err := run(logger, daemonOptions{
		events:       *events,
		configPath:   path,
		dbus:         !*noDBus,
		resetJournal: *resetJournal,
	}); err != nil {
		logger.Error("applistd failed", "error", err)
		os.Exit(1)
	}
}

type daemonOptions struct {
	events       string
	configPath   string
	dbus         bool
	resetJournal bool
}

func run(logger *slog.Logger, opts daemonOptions) error {
	logger.Info("starting applistd", "version", version)

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persister := config.NewFilePersister(opts.configPath)
	eng := engine.New(cfg, persister, logger)
	eng.SetWriteErrorCallback(func(err error) {
		logger.Warn("favorites not saved; the running list keeps the change", "error", err)
	})

	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(ctx) }()

	var journal store.Journal
	if cfg.Daemon.Journal {
		jsonl, err := store.NewJSONLJournal(cfg.JournalPath())
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer jsonl.Close()

		if opts.resetJournal {
			if err := jsonl.Clear(); err != nil {
				logger.Warn("failed to clear journal", "error", err)
			}
		}
		logger.Info("event journal enabled", "path", jsonl.Path())
		journal = jsonl
	}

	var watcher *config.Watcher
	if cfg.Daemon.WatchConfig {
		watcher, err = config.NewWatcher(opts.configPath, logger)
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			watcher.SetIgnoreFunc(persister.Wrote)
			watcher.SetReloadCallback(func(newCfg *config.Config) {
				if err := eng.ApplyConfig(ctx, newCfg); err != nil {
					logger.Warn("failed to apply config", "error", err)
					return
				}
				logger.Info("config reloaded", "favorites", len(newCfg.AppList.Favorites))
			})
			watcher.SetErrorCallback(func(err error) {
				logger.Warn("ignoring invalid config", "error", err)
			})
			if err := watcher.Start(); err != nil {
				logger.Warn("failed to start config watcher", "error", err)
				watcher = nil
			}
		}
	}

	var service *dbus.Service
	if opts.dbus {
		service = dbus.NewService(eng, logger)
		if err := service.Start(); err != nil {
			return fmt.Errorf("failed to start D-Bus service: %w", err)
		}
		go service.Forward(ctx, eng.Subscribe())
	}

	src, err := input.NewSource(opts.events, logger)
	if err != nil {
		return err
	}
	go pumpEvents(ctx, src, eng, journal, logger)

	logger.Info("applistd ready", "events", src.Name(), "favorites", len(cfg.AppList.Favorites))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

loop:
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reloadConfig(ctx, opts.configPath, eng, logger)
				continue
			}
			logger.Info("received signal, shutting down", "signal", sig)
			break loop
		case err := <-engineDone:
			return fmt.Errorf("engine stopped: %w", err)
		}
	}

	if watcher != nil {
		watcher.Stop()
	}
	if service != nil {
		_ = service.Stop()
	}
	cancel()
	<-engineDone

	logger.Info("applistd stopped")
	return nil
}

// pumpEvents forwards source events to the engine, journaling each one.
func pumpEvents(ctx context.Context, src input.EventSource, eng *engine.Engine, journal store.Journal, logger *slog.Logger) {
	ch := make(chan model.Event, 64)
	go func() {
		if err := src.Stream(ctx, ch); err != nil {
			logger.Error("event source failed", "source", src.Name(), "error", err)
		} else {
			logger.Info("event source finished", "source", src.Name())
		}
		close(ch)
	}()

	for ev := range ch {
		if journal != nil {
			if _, err := journal.Append(ev); err != nil {
				logger.Warn("failed to journal event", "error", err)
			}
		}
		if err := eng.HandleEvent(ctx, ev); err != nil {
			return
		}
	}
}

func reloadConfig(ctx context.Context, path string, eng *engine.Engine, logger *slog.Logger) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logger.Warn("failed to reload config", "error", err)
		return
	}
	if err := eng.ApplyConfig(ctx, cfg); err != nil {
		logger.Warn("failed to apply config", "error", err)
		return
	}
	logger.Info("config reloaded on SIGHUP")
}
