package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/applist/internal/engine"
	"github.com/jmylchreest/applist/internal/model"
)

type fakeController struct {
	updates   chan engine.Update
	calls     []string
	ungrouped bool
	err       error
}

func newFakeController() *fakeController {
	return &fakeController{updates: make(chan engine.Update, 1)}
}

func (f *fakeController) Subscribe() <-chan engine.Update  { return f.updates }
func (f *fakeController) Unsubscribe(<-chan engine.Update) {}

func (f *fakeController) Pin(_ context.Context, id string) error {
	f.calls = append(f.calls, "pin:"+id)
	return f.err
}

func (f *fakeController) Unpin(_ context.Context, id string) error {
	f.calls = append(f.calls, "unpin:"+id)
	return f.err
}

func (f *fakeController) Move(_ context.Context, id string, index int) error {
	f.calls = append(f.calls, "move:"+id+":"+string(rune('0'+index)))
	return f.err
}

func (f *fakeController) SetUngrouped(_ context.Context, ungrouped bool) error {
	f.ungrouped = ungrouped
	f.calls = append(f.calls, "ungrouped")
	return f.err
}

func testItems() []model.DisplayItem {
	return []model.DisplayItem{
		{Kind: model.ItemPlaceholder, AppID: "firefox", Pinned: true},
		{Kind: model.ItemGroup, AppID: "code", Title: "main.go", Pinned: true, Windows: []string{"w1", "w2"}},
		{Kind: model.ItemGroup, AppID: "kitty", Title: "zsh", Windows: []string{"w3"}},
	}
}

func loadedModel(t *testing.T, ctrl *fakeController) Model {
	t.Helper()
	m := New(nil, ctrl)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 20})
	m = updated.(Model)

	ctrl.updates <- engine.Update{Version: 1, Items: testItems()}
	msg := m.Init()()
	updated, _ = m.Update(msg)
	return updated.(Model)
}

func pressKey(t *testing.T, m Model, keys string) (Model, tea.Msg) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	if cmd == nil {
		return updated.(Model), nil
	}
	return updated.(Model), cmd()
}

func TestModel_ReceivesUpdates(t *testing.T) {
	m := loadedModel(t, newFakeController())

	assert.Len(t, m.items, 3)
	assert.Len(t, m.list.Items(), 3)
	assert.Contains(t, m.View(), "firefox")
	assert.Contains(t, m.View(), "2 groups, 0 windows, 1 placeholders")
}

func TestModel_TogglePin(t *testing.T) {
	ctrl := newFakeController()
	m := loadedModel(t, ctrl)

	// First item is pinned
	m, msg := pressKey(t, m, "p")
	assert.Equal(t, statusMsg{text: "Unpinned firefox"}, msg)

	// Third item is not
	m.list.Select(2)
	_, msg = pressKey(t, m, "p")
	assert.Equal(t, statusMsg{text: "Pinned kitty"}, msg)

	assert.Equal(t, []string{"unpin:firefox", "pin:kitty"}, ctrl.calls)
}

func TestModel_MoveFavorites(t *testing.T) {
	ctrl := newFakeController()
	m := loadedModel(t, ctrl)

	m.list.Select(1)
	m, msg := pressKey(t, m, "K")
	assert.Equal(t, statusMsg{text: "Moved code to 1"}, msg)

	// Already last favorite
	m, msg = pressKey(t, m, "J")
	assert.Nil(t, msg)

	// Unpinned items cannot move
	m.list.Select(2)
	_, msg = pressKey(t, m, "K")
	assert.Equal(t, statusMsg{text: "kitty is not pinned", isErr: true}, msg)

	assert.Equal(t, []string{"move:code:0"}, ctrl.calls)
}

func TestModel_MoveRejectedWhenDragDisabled(t *testing.T) {
	ctrl := newFakeController()
	ctrl.err = engine.ErrDragDisabled
	m := loadedModel(t, ctrl)

	m.list.Select(1)
	_, msg := pressKey(t, m, "K")
	require.IsType(t, statusMsg{}, msg)
	assert.True(t, msg.(statusMsg).isErr)
	assert.Contains(t, msg.(statusMsg).text, "disabled")
}

func TestModel_ToggleGrouping(t *testing.T) {
	ctrl := newFakeController()
	m := loadedModel(t, ctrl)

	m, msg := pressKey(t, m, "g")
	assert.True(t, ctrl.ungrouped)
	assert.Equal(t, statusMsg{text: "Ungrouped view"}, msg)

	_, msg = pressKey(t, m, "g")
	assert.False(t, ctrl.ungrouped)
	assert.Equal(t, statusMsg{text: "Grouped view"}, msg)
}

func TestModel_Quit(t *testing.T) {
	m := loadedModel(t, newFakeController())
	_, msg := pressKey(t, m, "q")
	assert.Equal(t, tea.QuitMsg{}, msg)
}

func TestModel_ClosedSubscription(t *testing.T) {
	ctrl := newFakeController()
	m := New(nil, ctrl)
	close(ctrl.updates)

	msg := m.Init()()
	assert.Equal(t, closedMsg{}, msg)
}

func TestItemLine(t *testing.T) {
	now := time.Unix(1700000000, 0)
	items := testItems()

	line := itemLine(&items[1], now)
	assert.True(t, strings.HasPrefix(line, "* code "))
	assert.Contains(t, line, "main.go [2]")

	line = itemLine(&items[0], now)
	assert.Contains(t, line, "(not running)")

	win := model.DisplayItem{Kind: model.ItemWindow, Title: "untitled", Windows: []string{"w9"}, OpenedAt: now.Add(-time.Hour).Unix()}
	line = itemLine(&win, now)
	assert.True(t, strings.HasPrefix(line, "  ? "))
	assert.True(t, strings.HasSuffix(line, "untitled  1 hour ago"))
}
