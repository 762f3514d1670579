package dbus

import (
	"context"
	"fmt"

	"github.com/jmylchreest/applist/internal/engine"
)

// EmitItemsChanged emits the ItemsChanged signal with the new item count.
func (s *Service) EmitItemsChanged(count uint32) error {
	if s.conn == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	err := s.conn.Emit(DBusPath, DBusInterface+".ItemsChanged", count)
	if err != nil {
		return fmt.Errorf("failed to emit ItemsChanged signal: %w", err)
	}

	s.logger.Debug("emitted ItemsChanged signal", "count", count)
	return nil
}

// Forward emits ItemsChanged for every update until ctx is cancelled or
// updates is closed.
func (s *Service) Forward(ctx context.Context, updates <-chan engine.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := s.EmitItemsChanged(uint32(len(u.Items))); err != nil {
				s.logger.Warn("failed to emit ItemsChanged", "error", err)
			}
		}
	}
}
