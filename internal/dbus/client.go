package dbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/applist/internal/model"
)

// Client calls the app list service of a running daemon.
type Client struct {
	conn   *dbus.Conn
	obj    dbus.BusObject
	logger *slog.Logger
}

// NewClient connects to the session bus and checks that the daemon owns
// its bus name. Returns ErrServiceUnavailable otherwise.
func NewClient(logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var hasOwner bool
	if err := conn.BusObject().Call("org.freedesktop.DBus.NameHasOwner", 0, DBusBusName).Store(&hasOwner); err != nil {
		return nil, fmt.Errorf("failed to query bus name owner: %w", err)
	}
	if !hasOwner {
		return nil, ErrServiceUnavailable
	}

	return &Client{
		conn:   conn,
		obj:    conn.Object(DBusBusName, DBusPath),
		logger: logger,
	}, nil
}

func (c *Client) call(ctx context.Context, method string, args ...any) *dbus.Call {
	c.logger.Debug("calling D-Bus method", "method", method)
	return c.obj.CallWithContext(ctx, DBusInterface+"."+method, 0, args...)
}

// Items fetches the daemon's display list.
func (c *Client) Items(ctx context.Context) ([]model.DisplayItem, error) {
	var data string
	if err := c.call(ctx, "Items").Store(&data); err != nil {
		return nil, fromDBusError(err)
	}

	var items []model.DisplayItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

// Pin adds an application to the favorites.
func (c *Client) Pin(ctx context.Context, appID string) error {
	return fromDBusError(c.call(ctx, "Pin", appID).Err)
}

// Unpin removes an application from the favorites.
func (c *Client) Unpin(ctx context.Context, appID string) error {
	return fromDBusError(c.call(ctx, "Unpin", appID).Err)
}

// Reorder replaces the favorites order.
func (c *Client) Reorder(ctx context.Context, ids []string) error {
	return fromDBusError(c.call(ctx, "Reorder", ids).Err)
}

// Move places a pinned application at index.
func (c *Client) Move(ctx context.Context, appID string, index int) error {
	return fromDBusError(c.call(ctx, "Move", appID, int32(index)).Err)
}

// Status fetches window, pinned and item counts.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.call(ctx, "Status").Store(&st.Windows, &st.Pinned, &st.Items)
	return st, fromDBusError(err)
}

// WatchItems calls fn with the new item count for every ItemsChanged
// signal until ctx is cancelled.
func (c *Client) WatchItems(ctx context.Context, fn func(count uint32)) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(DBusPath),
		dbus.WithMatchInterface(DBusInterface),
		dbus.WithMatchMember("ItemsChanged"),
	}
	if err := c.conn.AddMatchSignalContext(ctx, opts...); err != nil {
		return fmt.Errorf("failed to add match rule: %w", err)
	}
	defer c.conn.RemoveMatchSignal(opts...)

	ch := make(chan *dbus.Signal, 16)
	c.conn.Signal(ch)
	defer c.conn.RemoveSignal(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig, ok := <-ch:
			if !ok {
				return nil
			}
			if sig.Name != DBusInterface+".ItemsChanged" || len(sig.Body) < 1 {
				continue
			}
			count, ok := sig.Body[0].(uint32)
			if !ok {
				c.logger.Warn("invalid ItemsChanged payload", "body", sig.Body)
				continue
			}
			fn(count)
		}
	}
}
