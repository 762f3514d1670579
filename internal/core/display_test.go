package core

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/applist/internal/model"
)

func TestTruncateTitle(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		maxLen   int
		expected string
	}{
		{"short", "Firefox", 20, "Firefox"},
		{"exact", "Exactly Twenty Chars", 20, "Exactly Twenty Chars"},
		{"long", "Very Long Window Title That Exceeds Limit", 20, "Very Long Window ..."},
		{"minimum limit", "abcdef", 4, "a..."},
		{"disabled", "abcdef", 0, "abcdef"},
		{"below minimum", "abcdef", 3, "abcdef"},
		{"multibyte", "Ünïcödé wíndöw títlé", 10, "Ünïcödé..."},
		{"empty", "", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TruncateTitle(tt.title, tt.maxLen))
		})
	}
}

func TestTruncateTitle_LengthProperty(t *testing.T) {
	title := strings.Repeat("x", 50)
	for limit := 4; limit <= 60; limit++ {
		got := TruncateTitle(title, limit)
		if utf8.RuneCountInString(title) <= limit {
			assert.Equal(t, title, got)
			continue
		}
		assert.Equal(t, limit, utf8.RuneCountInString(got))
		assert.True(t, strings.HasSuffix(got, Ellipsis))
	}
}

func TestBuildDisplayList_PlaceholdersForWindowlessFavorites(t *testing.T) {
	items := BuildDisplayList([]string{"firefox", "thunderbird", "code"}, nil)

	require.Len(t, items, 3)
	for i, id := range []string{"firefox", "thunderbird", "code"} {
		assert.Equal(t, model.ItemPlaceholder, items[i].Kind)
		assert.Equal(t, id, items[i].AppID)
		assert.True(t, items[i].Pinned)
		assert.Empty(t, items[i].Windows)
	}
}

func TestBuildDisplayList_WindowsReplacePlaceholder(t *testing.T) {
	aggregated := []model.DisplayItem{
		{Kind: model.ItemWindow, AppID: "firefox", Windows: []string{"1"}},
		{Kind: model.ItemWindow, AppID: "firefox", Windows: []string{"2"}},
	}

	items := BuildDisplayList([]string{"firefox"}, aggregated)
	require.Len(t, items, 2)
	assert.Equal(t, 0, model.CountItems(items)[model.ItemPlaceholder])
	for _, it := range items {
		assert.True(t, it.Pinned)
	}
}

func TestBuildDisplayList_PinnedFirstInFavoritesOrder(t *testing.T) {
	aggregated := []model.DisplayItem{
		{Kind: model.ItemGroup, AppID: "slack", Windows: []string{"1"}},
		{Kind: model.ItemGroup, AppID: "code", Windows: []string{"2"}},
		{Kind: model.ItemGroup, AppID: "firefox", Windows: []string{"3"}},
	}

	items := BuildDisplayList([]string{"firefox", "thunderbird", "code"}, aggregated)
	require.Len(t, items, 4)

	assert.Equal(t, "firefox", items[0].AppID)
	assert.Equal(t, model.ItemGroup, items[0].Kind)
	assert.Equal(t, "thunderbird", items[1].AppID)
	assert.Equal(t, model.ItemPlaceholder, items[1].Kind)
	assert.Equal(t, "code", items[2].AppID)
	assert.Equal(t, "slack", items[3].AppID)
	assert.False(t, items[3].Pinned)
}

func TestBuildDisplayList_NoDuplicates(t *testing.T) {
	aggregated := []model.DisplayItem{
		{Kind: model.ItemGroup, AppID: "code", Windows: []string{"1"}},
		{Kind: model.ItemGroup, AppID: "code", Windows: []string{"1"}},
		{Kind: model.ItemPlaceholder, AppID: "stray"},
	}

	items := BuildDisplayList([]string{"code", "code"}, aggregated)
	require.Len(t, items, 1)
	assert.Equal(t, "group:code", items[0].Key())
}
