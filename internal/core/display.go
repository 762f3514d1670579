package core

import (
	"unicode/utf8"

	"github.com/jmylchreest/applist/internal/model"
)

// Ellipsis is appended to truncated titles.
const Ellipsis = "..."

// TruncateTitle shortens titles longer than maxLen characters to
// maxLen-3 characters plus Ellipsis. Titles at or under the limit are
// returned unchanged. A maxLen below 4 disables truncation.
func TruncateTitle(title string, maxLen int) string {
	if maxLen < len(Ellipsis)+1 || utf8.RuneCountInString(title) <= maxLen {
		return title
	}
	runes := []rune(title)
	return string(runes[:maxLen-len(Ellipsis)]) + Ellipsis
}

// BuildDisplayList merges aggregated items with the favorites list.
//
// Pinned apps come first in favorites order. Each is either a placeholder
// (no visible windows) or the items the aggregator produced for it, never
// both. Unpinned items follow in aggregator order. No key appears twice.
func BuildDisplayList(favorites []string, aggregated []model.DisplayItem) []model.DisplayItem {
	pinned := make(map[string]bool, len(favorites))
	for _, id := range favorites {
		pinned[id] = true
	}

	byApp := make(map[string][]model.DisplayItem)
	var unpinned []model.DisplayItem
	for _, it := range aggregated {
		switch it.Kind {
		case model.ItemGroup, model.ItemWindow:
			if it.AppID != "" && pinned[it.AppID] {
				it.Pinned = true
				byApp[it.AppID] = append(byApp[it.AppID], it)
				continue
			}
			unpinned = append(unpinned, it)
		case model.ItemPlaceholder:
			// Placeholders are derived from favorites below.
		}
	}

	result := make([]model.DisplayItem, 0, len(favorites)+len(unpinned))
	seen := make(map[string]bool, cap(result))
	add := func(it model.DisplayItem) {
		key := it.Key()
		if seen[key] {
			return
		}
		seen[key] = true
		result = append(result, it)
	}

	for _, id := range favorites {
		items := byApp[id]
		if len(items) == 0 {
			add(model.DisplayItem{
				Kind:   model.ItemPlaceholder,
				AppID:  id,
				Title:  id,
				Pinned: true,
			})
			continue
		}
		for _, it := range items {
			add(it)
		}
	}
	for _, it := range unpinned {
		add(it)
	}

	return result
}
