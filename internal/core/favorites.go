package core

import (
	"errors"
	"fmt"
	"slices"
)

// Favorites errors.
var (
	// ErrInvalidFavoriteReorder is returned when a reorder request contains
	// duplicate or empty application ids. The list is left unchanged.
	ErrInvalidFavoriteReorder = errors.New("invalid favorites reorder")

	// ErrUnknownFavorite is returned by Move for an id that is not pinned.
	ErrUnknownFavorite = errors.New("application is not pinned")
)

// FavoritesList is the ordered, duplicate-free list of pinned app ids.
type FavoritesList struct {
	ids []string
}

// NewFavoritesList creates a FavoritesList from a persisted sequence.
// Duplicates and empty ids in persisted data are dropped silently.
func NewFavoritesList(ids []string) *FavoritesList {
	f := &FavoritesList{}
	f.Replace(ids)
	return f
}

// Pin appends id if it is not already pinned.
// Returns false when nothing changed (already pinned or empty id).
func (f *FavoritesList) Pin(id string) bool {
	if id == "" || slices.Contains(f.ids, id) {
		return false
	}
	f.ids = append(f.ids, id)
	return true
}

// Unpin removes id. Unpinning an absent id is a no-op.
func (f *FavoritesList) Unpin(id string) bool {
	idx := slices.Index(f.ids, id)
	if idx < 0 {
		return false
	}
	f.ids = slices.Delete(f.ids, idx, idx+1)
	return true
}

// Reorder replaces the whole sequence. Sequences containing duplicates or
// empty ids are rejected with ErrInvalidFavoriteReorder.
// Returns whether the order changed.
func (f *FavoritesList) Reorder(ids []string) (bool, error) {
	if err := validateFavorites(ids); err != nil {
		return false, err
	}
	if slices.Equal(f.ids, ids) {
		return false, nil
	}
	f.ids = slices.Clone(ids)
	return true, nil
}

// Move relocates a pinned id to index (clamped to the list bounds).
func (f *FavoritesList) Move(id string, index int) (bool, error) {
	from := slices.Index(f.ids, id)
	if from < 0 {
		return false, fmt.Errorf("%w: %s", ErrUnknownFavorite, id)
	}

	next := slices.Delete(slices.Clone(f.ids), from, from+1)
	index = max(0, min(index, len(next)))
	next = slices.Insert(next, index, id)
	return f.Reorder(next)
}

// Replace loads a persisted sequence, dropping duplicates and empty ids.
// Returns whether the list changed.
func (f *FavoritesList) Replace(ids []string) bool {
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || slices.Contains(next, id) {
			continue
		}
		next = append(next, id)
	}
	if slices.Equal(f.ids, next) {
		return false
	}
	f.ids = next
	return true
}

// IDs returns a copy of the pinned ids in display order.
func (f *FavoritesList) IDs() []string {
	return slices.Clone(f.ids)
}

// Contains reports whether id is pinned.
func (f *FavoritesList) Contains(id string) bool {
	return slices.Contains(f.ids, id)
}

// Len returns the number of pinned ids.
func (f *FavoritesList) Len() int {
	return len(f.ids)
}

func validateFavorites(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: empty application id", ErrInvalidFavoriteReorder)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate %q", ErrInvalidFavoriteReorder, id)
		}
		seen[id] = true
	}
	return nil
}
