package core

import (
	"time"

	"github.com/jmylchreest/applist/internal/model"
)

// DefaultMaxTitleLen is the title limit for ungrouped window items.
const DefaultMaxTitleLen = 20

// Options holds the configuration that shapes a recompute.
type Options struct {
	FilterMode  model.FilterMode
	Ungrouped   bool
	MaxTitleLen int
}

// DefaultOptions returns grouped, workspace-filtered options.
func DefaultOptions() Options {
	return Options{
		FilterMode:  model.FilterActiveWorkspace,
		MaxTitleLen: DefaultMaxTitleLen,
	}
}

// State bundles the owned tables and the appearance order. Compute is a
// pure function of its current contents apart from that order.
type State struct {
	Windows   *WindowTable
	Favorites *FavoritesList
	Output    *OutputContext
	Options   Options

	aggregator *Aggregator
	now        func() time.Time
}

// NewState creates a State with the given favorites, options and bound
// output.
func NewState(favorites []string, opts Options, boundOutput string) *State {
	return &State{
		Windows:    NewWindowTable(),
		Favorites:  NewFavoritesList(favorites),
		Output:     NewOutputContext(boundOutput),
		Options:    opts,
		aggregator: NewAggregator(),
		now:        time.Now,
	}
}

// ApplyEvent mutates the tables for one compositor event and reports
// whether anything observable changed. Events for unknown windows are
// ignored; missing attributes default to empty.
func (s *State) ApplyEvent(ev model.Event) bool {
	switch ev.Type {
	case model.EventWindowCreated:
		t := model.Toplevel{
			ID:        ev.ID,
			AppID:     ev.AppID,
			Title:     ev.Title,
			Outputs:   ev.Outputs,
			Workspace: ev.Workspace,
			OpenedAt:  ev.Timestamp,
		}
		if existing, ok := s.Windows.Get(ev.ID); ok {
			if len(t.Outputs) == 0 {
				t.Outputs = existing.Outputs
			}
			if t.Workspace == "" {
				t.Workspace = existing.Workspace
			}
			if t.OpenedAt == 0 {
				t.OpenedAt = existing.OpenedAt
			}
		}
		if t.OpenedAt == 0 {
			t.OpenedAt = s.now().Unix()
		}
		return s.Windows.Upsert(t)
	case model.EventWindowTitleChanged:
		return s.Windows.SetTitle(ev.ID, ev.Title)
	case model.EventWindowOutputsChanged:
		return s.Windows.SetOutputs(ev.ID, ev.Outputs)
	case model.EventWindowWorkspaceChanged:
		return s.Windows.SetWorkspace(ev.ID, ev.Workspace)
	case model.EventWindowClosed:
		return s.Windows.Remove(ev.ID)
	case model.EventOutputFocusChanged:
		return s.Output.SetActiveOutput(ev.Output)
	case model.EventWorkspaceFocusChanged:
		return s.Output.SetActiveWorkspace(ev.Workspace)
	default:
		return false
	}
}

// Filter returns the visibility filter for the current options.
func (s *State) Filter() VisibilityFilter {
	return VisibilityFilter{Mode: s.Options.FilterMode, Context: s.Output}
}

// Compute produces the ordered display list for the current snapshot.
func (s *State) Compute() []model.DisplayItem {
	all := s.Windows.Sorted()
	s.aggregator.Observe(all)

	visible := s.Filter().Apply(all)
	aggregated := s.aggregator.Aggregate(visible, s.Options.Ungrouped, s.Options.MaxTitleLen)
	return BuildDisplayList(s.Favorites.IDs(), aggregated)
}
