// Package dbus exposes the app list over the session bus.
//
// The daemon exports io.github.jmylchreest.AppList so the CLI, status bars
// and applets can read the current display list, change favorites and
// follow updates through the ItemsChanged signal. Client wraps the same
// interface for callers.
package dbus
