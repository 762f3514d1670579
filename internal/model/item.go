package model

import (
	"fmt"
	"strings"
)

// ItemKind tags the variant of a DisplayItem.
type ItemKind int

const (
	// ItemPlaceholder is the icon-only item for a pinned app without
	// visible windows.
	ItemPlaceholder ItemKind = iota
	// ItemGroup is an application group holding one or more windows.
	ItemGroup
	// ItemWindow is a single window shown on its own (ungrouped mode).
	ItemWindow
)

// ItemKindNames maps item kinds to their serialized names.
var ItemKindNames = map[ItemKind]string{
	ItemPlaceholder: "placeholder",
	ItemGroup:       "group",
	ItemWindow:      "window",
}

func (k ItemKind) String() string {
	if name, ok := ItemKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ItemKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ItemKind) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	for kind, name := range ItemKindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("invalid item kind %q", s)
}

// DisplayItem is one entry of the ordered list handed to rendering.
type DisplayItem struct {
	Kind   ItemKind `json:"kind" yaml:"kind"`
	AppID  string   `json:"app_id" yaml:"app_id"`
	Title  string   `json:"title" yaml:"title"`
	Pinned bool     `json:"pinned" yaml:"pinned"`

	// Windows holds member window ids: all members for a group, exactly one
	// for a window item, none for a placeholder.
	Windows []string `json:"windows,omitempty" yaml:"windows,omitempty"`

	// OpenedAt is the open time of the oldest member window (unix seconds).
	OpenedAt int64 `json:"opened_at,omitempty" yaml:"opened_at,omitempty"`
}

// Key returns an identifier unique within a display list. A group of an
// unknown app is keyed by its window under its own prefix, so no app id
// can produce the same key.
func (d *DisplayItem) Key() string {
	switch d.Kind {
	case ItemPlaceholder:
		return "placeholder:" + d.AppID
	case ItemGroup:
		if d.AppID == "" && len(d.Windows) > 0 {
			return "orphan:" + d.Windows[0]
		}
		return "group:" + d.AppID
	case ItemWindow:
		if len(d.Windows) > 0 {
			return "window:" + d.Windows[0]
		}
		return "window:"
	default:
		return "unknown:" + d.AppID
	}
}

// WindowCount returns the number of windows represented by the item.
func (d *DisplayItem) WindowCount() int {
	return len(d.Windows)
}

// IsPlaceholder reports whether the item has no windows.
func (d *DisplayItem) IsPlaceholder() bool {
	return d.Kind == ItemPlaceholder
}

// Launchable reports whether activating the item should launch the app
// rather than focus a window.
func (d *DisplayItem) Launchable() bool {
	return d.Kind == ItemPlaceholder && d.AppID != ""
}

// CountItems returns how many items of each kind a list contains.
func CountItems(items []DisplayItem) map[ItemKind]int {
	counts := make(map[ItemKind]int, len(ItemKindNames))
	for _, it := range items {
		counts[it.Kind]++
	}
	return counts
}
