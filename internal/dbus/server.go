package dbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/applist/internal/engine"
	"github.com/jmylchreest/applist/internal/model"
)

// callTimeout bounds how long a D-Bus method waits for the engine loop.
const callTimeout = 5 * time.Second

// Backend is the engine surface the service exposes.
type Backend interface {
	Items() []model.DisplayItem
	Stats() engine.Stats
	Pin(ctx context.Context, appID string) error
	Unpin(ctx context.Context, appID string) error
	Reorder(ctx context.Context, ids []string) error
	Move(ctx context.Context, appID string, index int) error
}

// Service implements the io.github.jmylchreest.AppList D-Bus interface.
type Service struct {
	conn    *dbus.Conn
	logger  *slog.Logger
	backend Backend

	mu      sync.Mutex
	running bool
}

// NewService creates a Service backed by b.
func NewService(b Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:  logger,
		backend: b,
	}
}

// Start connects to the session bus and exports the service.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("service already running")
	}
	s.mu.Unlock()

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}
	s.conn = conn

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: appListMethods(),
				Signals: appListSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", DBusBusName)
	}

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.logger.Info("D-Bus app list service started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name and unexports the object.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if s.conn != nil {
		if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
			s.logger.Warn("failed to release bus name", "error", err)
		}
		_ = s.conn.Export(nil, DBusPath, DBusInterface)
		// The session bus connection is shared; leave it open.
	}

	s.logger.Info("D-Bus app list service stopped")
	return nil
}

// Items returns the current display list as a JSON array.
// D-Bus method: Items() -> s
func (s *Service) Items() (string, *dbus.Error) {
	items := s.backend.Items()
	if items == nil {
		items = []model.DisplayItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", toDBusError(err)
	}
	return string(data), nil
}

// Pin adds an application to the favorites.
// D-Bus method: Pin(s) -> nothing
func (s *Service) Pin(appID string) *dbus.Error {
	s.logger.Debug("Pin called", "app_id", appID)
	if appID == "" {
		return dbus.NewError(ErrorInvalidArgs, []any{"empty app id"})
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return toDBusError(s.backend.Pin(ctx, appID))
}

// Unpin removes an application from the favorites.
// D-Bus method: Unpin(s) -> nothing
func (s *Service) Unpin(appID string) *dbus.Error {
	s.logger.Debug("Unpin called", "app_id", appID)
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return toDBusError(s.backend.Unpin(ctx, appID))
}

// Reorder replaces the favorites order.
// D-Bus method: Reorder(as) -> nothing
func (s *Service) Reorder(ids []string) *dbus.Error {
	s.logger.Debug("Reorder called", "ids", ids)
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return toDBusError(s.backend.Reorder(ctx, ids))
}

// Move places a pinned application at index.
// D-Bus method: Move(si) -> nothing
func (s *Service) Move(appID string, index int32) *dbus.Error {
	s.logger.Debug("Move called", "app_id", appID, "index", index)
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	return toDBusError(s.backend.Move(ctx, appID, int(index)))
}

// Status returns window, pinned and item counts.
// D-Bus method: Status() -> (uuu)
func (s *Service) Status() (uint32, uint32, uint32, *dbus.Error) {
	st := s.backend.Stats()
	return st.Windows, st.Pinned, st.Items, nil
}

func appListMethods() []introspect.Method {
	return []introspect.Method{
		{
			Name: "Items",
			Args: []introspect.Arg{
				{Name: "items", Type: "s", Direction: "out"},
			},
		},
		{
			Name: "Pin",
			Args: []introspect.Arg{
				{Name: "app_id", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Unpin",
			Args: []introspect.Arg{
				{Name: "app_id", Type: "s", Direction: "in"},
			},
		},
		{
			Name: "Reorder",
			Args: []introspect.Arg{
				{Name: "app_ids", Type: "as", Direction: "in"},
			},
		},
		{
			Name: "Move",
			Args: []introspect.Arg{
				{Name: "app_id", Type: "s", Direction: "in"},
				{Name: "index", Type: "i", Direction: "in"},
			},
		},
		{
			Name: "Status",
			Args: []introspect.Arg{
				{Name: "windows", Type: "u", Direction: "out"},
				{Name: "pinned", Type: "u", Direction: "out"},
				{Name: "items", Type: "u", Direction: "out"},
			},
		},
	}
}

func appListSignals() []introspect.Signal {
	return []introspect.Signal{
		{
			Name: "ItemsChanged",
			Args: []introspect.Arg{
				{Name: "count", Type: "u"},
			},
		},
	}
}
