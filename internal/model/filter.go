package model

import (
	"fmt"
	"strings"
)

// FilterMode selects how toplevels are filtered before display.
type FilterMode int

const (
	// FilterActiveWorkspace shows windows on the current workspace and
	// windows without workspace affinity. This is the default.
	FilterActiveWorkspace FilterMode = iota
	// FilterConfiguredOutput shows windows on the output the applet is
	// bound to.
	FilterConfiguredOutput
)

func (m FilterMode) String() string {
	switch m {
	case FilterActiveWorkspace:
		return "ActiveWorkspace"
	case FilterConfiguredOutput:
		return "ConfiguredOutput"
	default:
		return fmt.Sprintf("FilterMode(%d)", int(m))
	}
}

// ParseFilterMode parses a filter mode name. Matching is case-insensitive
// and accepts snake_case and kebab-case forms.
func ParseFilterMode(s string) (FilterMode, error) {
	norm := strings.NewReplacer("_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch norm {
	case "", "activeworkspace", "workspace":
		return FilterActiveWorkspace, nil
	case "configuredoutput", "output":
		return FilterConfiguredOutput, nil
	default:
		return FilterActiveWorkspace, fmt.Errorf("invalid filter mode %q (use ActiveWorkspace or ConfiguredOutput)", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m FilterMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *FilterMode) UnmarshalText(text []byte) error {
	mode, err := ParseFilterMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
