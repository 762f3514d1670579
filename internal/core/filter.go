package core

import (
	"github.com/jmylchreest/applist/internal/model"
)

// VisibilityFilter decides which windows take part in a recompute.
type VisibilityFilter struct {
	Mode    model.FilterMode
	Context *OutputContext
}

// Visible reports whether a window passes the filter.
//
// ActiveWorkspace: windows without a workspace are always visible; others
// must match the current workspace. With no known current workspace every
// window is visible.
//
// ConfiguredOutput: the window's output set must contain the bound output
// (or the focused output when the applet is unbound). Windows that have not
// reported any output are hidden.
func (f VisibilityFilter) Visible(t *model.Toplevel) bool {
	ctx := f.Context
	if ctx == nil {
		ctx = &OutputContext{}
	}

	switch f.Mode {
	case model.FilterConfiguredOutput:
		target := ctx.BoundOutput()
		if target == "" {
			target = ctx.ActiveOutput()
		}
		if target == "" || len(t.Outputs) == 0 {
			return false
		}
		return t.OnOutput(target)
	default:
		if !t.HasWorkspace() || ctx.ActiveWorkspace() == "" {
			return true
		}
		return t.Workspace == ctx.ActiveWorkspace()
	}
}

// Apply returns the windows that pass the filter, preserving input order.
func (f VisibilityFilter) Apply(windows []Window) []Window {
	result := make([]Window, 0, len(windows))
	for _, w := range windows {
		if f.Visible(&w.Toplevel) {
			result = append(result, w)
		}
	}
	return result
}
