// Package engine runs the app-list control loop.
//
// An Engine owns the window table, favorites list and output context from
// internal/core. Compositor events, user actions and configuration
// snapshots are posted over channels and applied one at a time by Run, so
// the core tables are never touched concurrently. Every observable change
// recomputes the display list and publishes it to subscribers.
//
// Favorites changes are persisted by a background writer. Write failures
// are logged and never rolled back.
package engine
