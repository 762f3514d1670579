package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/applist/internal/config"
	"github.com/jmylchreest/applist/internal/core"
	"github.com/jmylchreest/applist/internal/dbus"
	"github.com/jmylchreest/applist/internal/engine"
)

// favoritesBackend changes favorites either in the daemon or on disk.
type favoritesBackend interface {
	Pin(ctx context.Context, appID string) error
	Unpin(ctx context.Context, appID string) error
	Reorder(ctx context.Context, ids []string) error
	Move(ctx context.Context, appID string, index int) error
}

// fileFavorites edits the config file directly, applying the same rules
// as the daemon.
type fileFavorites struct {
	path      string
	persister *config.FilePersister
}

func newFileFavorites(path string) *fileFavorites {
	return &fileFavorites{path: path, persister: config.NewFilePersister(path)}
}

func (f *fileFavorites) load() (*config.Config, *core.FavoritesList, error) {
	c, err := config.LoadConfig(f.path)
	if err != nil {
		return nil, nil, err
	}
	return c, core.NewFavoritesList(c.AppList.Favorites), nil
}

func (f *fileFavorites) Pin(_ context.Context, appID string) error {
	if appID == "" {
		return fmt.Errorf("%w: empty app id", core.ErrInvalidFavoriteReorder)
	}
	return f.persister.AddPinned(appID)
}

func (f *fileFavorites) Unpin(_ context.Context, appID string) error {
	return f.persister.RemovePinned(appID)
}

func (f *fileFavorites) Reorder(_ context.Context, ids []string) error {
	c, favs, err := f.load()
	if err != nil {
		return err
	}
	if !c.AppList.EnableDragSource {
		return engine.ErrDragDisabled
	}
	changed, err := favs.Reorder(ids)
	if err != nil || !changed {
		return err
	}
	return f.persister.UpdatePinned(favs.IDs())
}

func (f *fileFavorites) Move(_ context.Context, appID string, index int) error {
	c, favs, err := f.load()
	if err != nil {
		return err
	}
	if !c.AppList.EnableDragSource {
		return engine.ErrDragDisabled
	}
	changed, err := favs.Move(appID, index)
	if err != nil || !changed {
		return err
	}
	return f.persister.UpdatePinned(favs.IDs())
}

// favoritesTarget prefers the running daemon and falls back to the file.
func favoritesTarget() favoritesBackend {
	client, err := dbus.NewClient(logger)
	if err == nil {
		return client
	}
	if !errors.Is(err, dbus.ErrServiceUnavailable) {
		logger.Debug("D-Bus unavailable", "error", err)
	}
	logger.Debug("editing config file directly", "path", configPath())
	return newFileFavorites(configPath())
}

func withTimeout(cmd *cobra.Command, fn func(ctx context.Context, b favoritesBackend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	return fn(ctx, favoritesTarget())
}

var pinCmd = &cobra.Command{
	Use:   "pin <app-id>...",
	Short: "Pin applications to the dock",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTimeout(cmd, func(ctx context.Context, b favoritesBackend) error {
			for _, id := range args {
				if err := b.Pin(ctx, id); err != nil {
					return fmt.Errorf("pin %s: %w", id, err)
				}
			}
			return nil
		})
	},
}

var unpinCmd = &cobra.Command{
	Use:   "unpin <app-id>...",
	Short: "Unpin applications from the dock",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTimeout(cmd, func(ctx context.Context, b favoritesBackend) error {
			for _, id := range args {
				if err := b.Unpin(ctx, id); err != nil {
					return fmt.Errorf("unpin %s: %w", id, err)
				}
			}
			return nil
		})
	},
}

var reorderCmd = &cobra.Command{
	Use:   "reorder <app-id>...",
	Short: "Replace the order of pinned applications",
	Long: `Replace the favorites order with the given app ids.

The sequence must not contain duplicates or empty ids. Reordering is
rejected when enable_drag_source is false.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withTimeout(cmd, func(ctx context.Context, b favoritesBackend) error {
			return b.Reorder(ctx, args)
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <app-id> <index>",
	Short: "Move a pinned application to a position (0-based)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q: %w", args[1], err)
		}
		return withTimeout(cmd, func(ctx context.Context, b favoritesBackend) error {
			return b.Move(ctx, args[0], index)
		})
	},
}

func init() {
	rootCmd.AddCommand(pinCmd, unpinCmd, reorderCmd, moveCmd)
}
