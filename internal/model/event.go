package model

import (
	"errors"
	"fmt"
	"strings"
)

// EventType identifies a normalized compositor event.
type EventType string

const (
	EventWindowCreated          EventType = "window_created"
	EventWindowTitleChanged     EventType = "window_title_changed"
	EventWindowOutputsChanged   EventType = "window_outputs_changed"
	EventWindowWorkspaceChanged EventType = "window_workspace_changed"
	EventWindowClosed           EventType = "window_closed"
	EventOutputFocusChanged     EventType = "output_focus_changed"
	EventWorkspaceFocusChanged  EventType = "workspace_focus_changed"
)

// Event is a single normalized fact from the compositor bridge.
// Only the fields relevant to Type are meaningful.
type Event struct {
	Type      EventType `json:"type" yaml:"type"`
	ID        string    `json:"id,omitempty" yaml:"id,omitempty"`
	AppID     string    `json:"app_id,omitempty" yaml:"app_id,omitempty"`
	Title     string    `json:"title,omitempty" yaml:"title,omitempty"`
	Outputs   []string  `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Workspace string    `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Output    string    `json:"output,omitempty" yaml:"output,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// Validation errors.
var (
	ErrEmptyEventType   = errors.New("event type cannot be empty")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrMissingWindowID  = errors.New("window event requires an id")
)

// ParseEventType parses an event type, accepting a few aliases used by
// compositor bridges (e.g. "created", "closed", "title").
func ParseEventType(s string) (EventType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", ErrEmptyEventType
	case "window_created", "created", "new":
		return EventWindowCreated, nil
	case "window_title_changed", "title":
		return EventWindowTitleChanged, nil
	case "window_outputs_changed", "outputs":
		return EventWindowOutputsChanged, nil
	case "window_workspace_changed", "workspace":
		return EventWindowWorkspaceChanged, nil
	case "window_closed", "closed", "close":
		return EventWindowClosed, nil
	case "output_focus_changed", "output_focus", "focus_output":
		return EventOutputFocusChanged, nil
	case "workspace_focus_changed", "workspace_focus", "focus_workspace":
		return EventWorkspaceFocusChanged, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownEventType, s)
	}
}

// IsWindowEvent reports whether the event targets a single window.
func (t EventType) IsWindowEvent() bool {
	switch t {
	case EventWindowCreated, EventWindowTitleChanged, EventWindowOutputsChanged,
		EventWindowWorkspaceChanged, EventWindowClosed:
		return true
	default:
		return false
	}
}

// Normalize canonicalizes the event type in place.
func (e *Event) Normalize() error {
	t, err := ParseEventType(string(e.Type))
	if err != nil {
		return err
	}
	e.Type = t
	return nil
}

// Validate checks that the event carries the fields its type requires.
// Missing optional attributes are not errors; they default to empty.
func (e *Event) Validate() error {
	if e.Type == "" {
		return ErrEmptyEventType
	}
	if _, err := ParseEventType(string(e.Type)); err != nil {
		return err
	}
	if e.Type.IsWindowEvent() && e.ID == "" {
		return ErrMissingWindowID
	}
	return nil
}

// WindowCreated builds a window-created event.
func WindowCreated(id, appID, title string) Event {
	return Event{Type: EventWindowCreated, ID: id, AppID: appID, Title: title}
}

// WindowTitleChanged builds a title-changed event.
func WindowTitleChanged(id, title string) Event {
	return Event{Type: EventWindowTitleChanged, ID: id, Title: title}
}

// WindowOutputsChanged builds an outputs-changed event.
func WindowOutputsChanged(id string, outputs ...string) Event {
	return Event{Type: EventWindowOutputsChanged, ID: id, Outputs: outputs}
}

// WindowWorkspaceChanged builds a workspace-changed event.
func WindowWorkspaceChanged(id, workspace string) Event {
	return Event{Type: EventWindowWorkspaceChanged, ID: id, Workspace: workspace}
}

// WindowClosed builds a window-closed event.
func WindowClosed(id string) Event {
	return Event{Type: EventWindowClosed, ID: id}
}

// OutputFocusChanged builds an output focus event.
func OutputFocusChanged(output string) Event {
	return Event{Type: EventOutputFocusChanged, Output: output}
}

// WorkspaceFocusChanged builds a workspace focus event.
func WorkspaceFocusChanged(workspace string) Event {
	return Event{Type: EventWorkspaceFocusChanged, Workspace: workspace}
}
