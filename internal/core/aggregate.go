package core

import (
	"slices"

	"github.com/jmylchreest/applist/internal/model"
)

// Aggregator classifies windows into display groups.
//
// It keeps the only state that survives between recomputes: the
// first-appearance rank of every group key. A rank is assigned when the
// first window of a group enters the WindowTable and dropped once the last
// one closes, so closing windows never reorders the remaining groups and
// switching workspaces does not shuffle them either.
type Aggregator struct {
	nextRank uint64
	ranks    map[groupID]uint64
}

// groupID identifies a group. Windows with an unknown app id are keyed by
// window id in a separate space, so they never merge with each other or
// with an app whose id happens to equal a window id.
type groupID struct {
	unknown bool
	id      string
}

// NewAggregator creates an Aggregator with an empty appearance order.
func NewAggregator() *Aggregator {
	return &Aggregator{ranks: make(map[groupID]uint64)}
}

func groupKey(w *Window) groupID {
	if w.AppID == "" {
		return groupID{unknown: true, id: w.ID}
	}
	return groupID{id: w.AppID}
}

func (a *Aggregator) rank(key groupID) uint64 {
	if r, ok := a.ranks[key]; ok {
		return r
	}
	a.nextRank++
	a.ranks[key] = a.nextRank
	return a.nextRank
}

// Observe updates the appearance order from every known window, visible or
// not. windows must be sorted by first-seen sequence.
func (a *Aggregator) Observe(windows []Window) {
	live := make(map[groupID]bool, len(windows))
	for i := range windows {
		key := groupKey(&windows[i])
		live[key] = true
		a.rank(key)
	}
	for key := range a.ranks {
		if !live[key] {
			delete(a.ranks, key)
		}
	}
}

// Aggregate turns visible windows (sorted by first-seen sequence) into
// display items. In grouped mode it yields one ItemGroup per group key,
// titled after the first-seen member and ordered by appearance rank. In
// ungrouped mode it yields one ItemWindow per window in first-seen order,
// with titles truncated to maxTitleLen.
func (a *Aggregator) Aggregate(visible []Window, ungrouped bool, maxTitleLen int) []model.DisplayItem {
	if ungrouped {
		items := make([]model.DisplayItem, 0, len(visible))
		for _, w := range visible {
			items = append(items, model.DisplayItem{
				Kind:     model.ItemWindow,
				AppID:    w.AppID,
				Title:    TruncateTitle(w.Title, maxTitleLen),
				Windows:  []string{w.ID},
				OpenedAt: w.OpenedAt,
			})
		}
		return items
	}

	type group struct {
		rank uint64
		item model.DisplayItem
	}
	groups := make(map[groupID]*group)
	for i := range visible {
		w := &visible[i]
		key := groupKey(w)
		g, exists := groups[key]
		if !exists {
			g = &group{
				rank: a.rank(key),
				item: model.DisplayItem{
					Kind:     model.ItemGroup,
					AppID:    w.AppID,
					Title:    w.Title,
					OpenedAt: w.OpenedAt,
				},
			}
			groups[key] = g
		}
		g.item.Windows = append(g.item.Windows, w.ID)
		if w.OpenedAt > 0 && (g.item.OpenedAt == 0 || w.OpenedAt < g.item.OpenedAt) {
			g.item.OpenedAt = w.OpenedAt
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	slices.SortFunc(ordered, func(x, y *group) int {
		switch {
		case x.rank < y.rank:
			return -1
		case x.rank > y.rank:
			return 1
		default:
			return 0
		}
	})

	items := make([]model.DisplayItem, 0, len(ordered))
	for _, g := range ordered {
		items = append(items, g.item)
	}
	return items
}
