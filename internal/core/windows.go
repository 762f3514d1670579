package core

import (
	"iter"
	"maps"
	"slices"

	"github.com/jmylchreest/applist/internal/model"
)

// Window is a WindowTable snapshot entry.
type Window struct {
	model.Toplevel

	// Seq is the monotonic first-seen sequence of the window.
	Seq uint64
}

type windowEntry struct {
	toplevel model.Toplevel
	seq      uint64
}

// WindowTable is the authoritative set of currently known toplevels.
type WindowTable struct {
	windows map[string]*windowEntry
	nextSeq uint64
}

// NewWindowTable creates an empty WindowTable.
func NewWindowTable() *WindowTable {
	return &WindowTable{
		windows: make(map[string]*windowEntry),
	}
}

// Upsert inserts or replaces a window's attributes.
// Returns true if anything observable changed.
func (w *WindowTable) Upsert(t model.Toplevel) bool {
	if t.ID == "" {
		return false
	}

	e, exists := w.windows[t.ID]
	if !exists {
		w.nextSeq++
		w.windows[t.ID] = &windowEntry{toplevel: t.Clone(), seq: w.nextSeq}
		return true
	}

	if e.toplevel.Equal(&t) {
		return false
	}
	openedAt := e.toplevel.OpenedAt
	e.toplevel = t.Clone()
	if e.toplevel.OpenedAt == 0 {
		e.toplevel.OpenedAt = openedAt
	}
	return true
}

// update applies fn to an existing window and reports whether it changed.
func (w *WindowTable) update(id string, fn func(t *model.Toplevel)) bool {
	e, exists := w.windows[id]
	if !exists {
		return false
	}
	before := e.toplevel.Clone()
	fn(&e.toplevel)
	return !before.Equal(&e.toplevel)
}

// SetTitle updates the title of a known window.
func (w *WindowTable) SetTitle(id, title string) bool {
	return w.update(id, func(t *model.Toplevel) { t.Title = title })
}

// SetOutputs replaces the output set of a known window.
func (w *WindowTable) SetOutputs(id string, outputs []string) bool {
	return w.update(id, func(t *model.Toplevel) { t.Outputs = slices.Clone(outputs) })
}

// SetWorkspace updates the workspace of a known window.
// An empty workspace clears the affinity.
func (w *WindowTable) SetWorkspace(id, workspace string) bool {
	return w.update(id, func(t *model.Toplevel) { t.Workspace = workspace })
}

// Remove deletes a window. Removing an unknown window is a no-op.
func (w *WindowTable) Remove(id string) bool {
	if _, exists := w.windows[id]; !exists {
		return false
	}
	delete(w.windows, id)
	return true
}

// Get returns a copy of the window with the given id.
func (w *WindowTable) Get(id string) (model.Toplevel, bool) {
	e, exists := w.windows[id]
	if !exists {
		return model.Toplevel{}, false
	}
	return e.toplevel.Clone(), true
}

// Len returns the number of known windows.
func (w *WindowTable) Len() int {
	return len(w.windows)
}

// All returns a lazy sequence of window snapshots. Iteration order is
// unspecified; callers order by Seq when they need stability.
func (w *WindowTable) All() iter.Seq[Window] {
	return func(yield func(Window) bool) {
		for _, id := range slices.Collect(maps.Keys(w.windows)) {
			e, exists := w.windows[id]
			if !exists {
				continue
			}
			if !yield(Window{Toplevel: e.toplevel.Clone(), Seq: e.seq}) {
				return
			}
		}
	}
}

// Sorted returns all windows ordered by first-seen sequence.
func (w *WindowTable) Sorted() []Window {
	return sortBySeq(slices.Collect(w.All()))
}

func sortBySeq(ws []Window) []Window {
	slices.SortFunc(ws, func(a, b Window) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	})
	return ws
}
