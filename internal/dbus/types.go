package dbus

import (
	"errors"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/applist/internal/core"
	"github.com/jmylchreest/applist/internal/engine"
)

const (
	// DBusInterface is the app list interface name.
	DBusInterface = "io.github.jmylchreest.AppList"
	// DBusPath is the app list object path.
	DBusPath = "/io/github/jmylchreest/AppList"
	// DBusBusName is the bus name to claim.
	DBusBusName = "io.github.jmylchreest.AppList"
)

// D-Bus error names returned by the service.
const (
	ErrorDragDisabled    = DBusInterface + ".Error.DragDisabled"
	ErrorInvalidReorder  = DBusInterface + ".Error.InvalidReorder"
	ErrorUnknownFavorite = DBusInterface + ".Error.UnknownFavorite"
	ErrorInvalidArgs     = DBusInterface + ".Error.InvalidArgs"
	ErrorFailed          = DBusInterface + ".Error.Failed"
)

// ErrServiceUnavailable is returned by NewClient when no daemon owns the bus name.
var ErrServiceUnavailable = errors.New("applist daemon not running")

// Status holds the counts returned by the Status method.
type Status struct {
	Windows uint32 `json:"windows"`
	Pinned  uint32 `json:"pinned"`
	Items   uint32 `json:"items"`
}

var errorNames = []struct {
	name string
	err  error
}{
	{ErrorDragDisabled, engine.ErrDragDisabled},
	{ErrorInvalidReorder, core.ErrInvalidFavoriteReorder},
	{ErrorUnknownFavorite, core.ErrUnknownFavorite},
}

// toDBusError maps engine errors onto named D-Bus errors.
func toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return dbus.NewError(e.name, []any{err.Error()})
		}
	}
	return dbus.NewError(ErrorFailed, []any{err.Error()})
}

// fromDBusError maps named D-Bus errors back onto sentinel errors so
// callers can use errors.Is on both sides of the bus.
func fromDBusError(err error) error {
	if err == nil {
		return nil
	}

	var dbusErr dbus.Error
	var dbusErrPtr *dbus.Error
	switch {
	case errors.As(err, &dbusErrPtr):
		dbusErr = *dbusErrPtr
	case errors.As(err, &dbusErr):
	default:
		return err
	}

	for _, e := range errorNames {
		if dbusErr.Name == e.name {
			return &remoteError{sentinel: e.err, message: errorMessage(dbusErr)}
		}
	}
	return err
}

func errorMessage(e dbus.Error) string {
	var parts []string
	for _, b := range e.Body {
		if s, ok := b.(string); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return e.Name
	}
	return strings.Join(parts, ": ")
}

// remoteError carries a daemon-side message while matching the sentinel.
type remoteError struct {
	sentinel error
	message  string
}

func (e *remoteError) Error() string {
	return e.message
}

func (e *remoteError) Unwrap() error {
	return e.sentinel
}
