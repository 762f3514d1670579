// Package model defines the core data structures for applist.
package model

import (
	"slices"
	"time"
)

// Toplevel represents a single open application window as reported by the
// compositor bridge.
type Toplevel struct {
	// ID is the opaque window handle. Stable for the window's lifetime.
	ID string `json:"id" yaml:"id"`

	// AppID is the application identifier. Empty means unknown.
	AppID string `json:"app_id" yaml:"app_id"`
	Title string `json:"title" yaml:"title"`

	// Outputs lists the output names the window is currently visible on.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`

	// Workspace is empty for windows without workspace affinity (sticky).
	Workspace string `json:"workspace,omitempty" yaml:"workspace,omitempty"`

	OpenedAt int64 `json:"opened_at,omitempty" yaml:"opened_at,omitempty"`
}

// OnOutput reports whether the window is visible on the named output.
func (t *Toplevel) OnOutput(name string) bool {
	return slices.Contains(t.Outputs, name)
}

// HasWorkspace reports whether the window declares a workspace affinity.
func (t *Toplevel) HasWorkspace() bool {
	return t.Workspace != ""
}

// Equal reports whether two toplevels carry the same observable attributes.
func (t *Toplevel) Equal(o *Toplevel) bool {
	return t.ID == o.ID &&
		t.AppID == o.AppID &&
		t.Title == o.Title &&
		t.Workspace == o.Workspace &&
		slices.Equal(t.Outputs, o.Outputs)
}

// Clone returns a copy that shares no slices with the original.
func (t Toplevel) Clone() Toplevel {
	t.Outputs = slices.Clone(t.Outputs)
	return t
}

// OpenedAtTime returns the open timestamp as a time.Time.
func (t *Toplevel) OpenedAtTime() time.Time {
	return time.Unix(t.OpenedAt, 0)
}

// DisplayName returns the application id, or "unknown" when empty.
func (t *Toplevel) DisplayName() string {
	if t.AppID == "" {
		return "unknown"
	}
	return t.AppID
}
