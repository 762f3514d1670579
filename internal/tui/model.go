// Package tui provides the BubbleTea-based live view of the app list.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/applist/internal/config"
	"github.com/jmylchreest/applist/internal/engine"
	"github.com/jmylchreest/applist/internal/model"
)

const (
	appColumnWidth = 24
	actionTimeout  = 5 * time.Second
)

// Controller is the engine surface the TUI drives.
type Controller interface {
	Subscribe() <-chan engine.Update
	Unsubscribe(ch <-chan engine.Update)
	Pin(ctx context.Context, appID string) error
	Unpin(ctx context.Context, appID string) error
	Move(ctx context.Context, appID string, index int) error
	SetUngrouped(ctx context.Context, ungrouped bool) error
}

var (
	pinnedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Model is the main TUI model.
type Model struct {
	cfg  *config.Config
	ctrl Controller

	list list.Model
	help help.Model
	keys KeyMap

	updates   <-chan engine.Update
	items     []model.DisplayItem
	ungrouped bool
	showHelp  bool
	width     int
	height    int
	ready     bool

	statusMsg string
	statusErr bool
}

// displayItem wraps a DisplayItem for the list component.
type displayItem struct {
	item model.DisplayItem
}

func (i displayItem) FilterValue() string {
	return i.item.AppID + " " + i.item.Title
}

// itemDelegate renders one line per item.
type itemDelegate struct {
	now func() time.Time
}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

// Render renders a list item, highlighting the selection and pinned apps.
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	di, ok := li.(displayItem)
	if !ok {
		return
	}

	line := itemLine(&di.item, d.now())
	if width := m.Width(); width > 2 {
		line = runewidth.Truncate(line, width-2, "…")
	}

	switch {
	case index == m.Index():
		fmt.Fprint(w, selectedStyle.Render("> "+line))
	case di.item.Kind == model.ItemPlaceholder:
		fmt.Fprint(w, dimStyle.Render("  "+line))
	case di.item.Pinned:
		fmt.Fprint(w, pinnedStyle.Render("  "+line))
	default:
		fmt.Fprint(w, "  "+line)
	}
}

// itemLine formats an item as a single unstyled row.
func itemLine(item *model.DisplayItem, now time.Time) string {
	var sb strings.Builder

	if item.Pinned {
		sb.WriteString("* ")
	} else {
		sb.WriteString("  ")
	}

	app := item.AppID
	if app == "" {
		app = "?"
	}
	app = runewidth.Truncate(app, appColumnWidth, "…")
	sb.WriteString(runewidth.FillRight(app, appColumnWidth))

	switch item.Kind {
	case model.ItemPlaceholder:
		sb.WriteString(" (not running)")
	case model.ItemGroup:
		fmt.Fprintf(&sb, " %s [%d]", item.Title, item.WindowCount())
	case model.ItemWindow:
		sb.WriteString(" " + item.Title)
	}

	if item.OpenedAt > 0 {
		sb.WriteString("  " + humanize.RelTime(time.Unix(item.OpenedAt, 0), now, "ago", "from now"))
	}
	return sb.String()
}

// New creates a new TUI model.
func New(cfg *config.Config, ctrl Controller) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	l := list.New(nil, itemDelegate{now: time.Now}, 0, 0)
	l.Title = "App List"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	return Model{
		cfg:       cfg,
		ctrl:      ctrl,
		list:      l,
		help:      help.New(),
		keys:      DefaultKeyMap(),
		updates:   ctrl.Subscribe(),
		ungrouped: cfg.AppList.UngroupedWindows,
	}
}

// Close releases the engine subscription.
func (m Model) Close() {
	m.ctrl.Unsubscribe(m.updates)
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return m.waitForUpdate
}

type updateMsg struct {
	update engine.Update
}

type closedMsg struct{}

// waitForUpdate blocks until the engine publishes a new list.
func (m Model) waitForUpdate() tea.Msg {
	u, ok := <-m.updates
	if !ok {
		return closedMsg{}
	}
	return updateMsg{update: u}
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.list.SetSize(msg.Width, msg.Height-3)
		return m, nil

	case updateMsg:
		m.setItems(msg.update.Items)
		return m, m.waitForUpdate

	case closedMsg:
		return m, func() tea.Msg {
			return statusMsg{text: "engine stopped", isErr: true}
		}

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) setItems(items []model.DisplayItem) {
	m.items = items
	listItems := make([]list.Item, len(items))
	for i := range items {
		listItems[i] = displayItem{item: items[i]}
	}
	m.list.SetItems(listItems)
}

func (m Model) selected() (model.DisplayItem, bool) {
	di, ok := m.list.SelectedItem().(displayItem)
	return di.item, ok
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.TogglePin):
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		if item.AppID == "" {
			return m, status("window has no app id", true)
		}
		if item.Pinned {
			return m, m.action("Unpinned "+item.AppID, func(ctx context.Context) error {
				return m.ctrl.Unpin(ctx, item.AppID)
			})
		}
		return m, m.action("Pinned "+item.AppID, func(ctx context.Context) error {
			return m.ctrl.Pin(ctx, item.AppID)
		})

	case key.Matches(msg, m.keys.MoveUp):
		return m, m.moveSelected(-1)

	case key.Matches(msg, m.keys.MoveDown):
		return m, m.moveSelected(1)

	case key.Matches(msg, m.keys.ToggleGroup):
		m.ungrouped = !m.ungrouped
		ungrouped := m.ungrouped
		label := "Grouped view"
		if ungrouped {
			label = "Ungrouped view"
		}
		return m, m.action(label, func(ctx context.Context) error {
			return m.ctrl.SetUngrouped(ctx, ungrouped)
		})

	case key.Matches(msg, m.keys.Copy):
		if item, ok := m.selected(); ok && item.AppID != "" {
			return m, m.copyToClipboard(item.AppID)
		}
		return m, nil

	case key.Matches(msg, m.keys.CopyAllYAML):
		data, err := yaml.Marshal(m.items)
		if err != nil {
			return m, status("Failed to marshal YAML: "+err.Error(), true)
		}
		return m, m.copyToClipboard(string(data))
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// favoriteOrder returns the pinned app ids in display order, which is the
// favorites order.
func (m Model) favoriteOrder() []string {
	var ids []string
	seen := map[string]bool{}
	for i := range m.items {
		it := &m.items[i]
		if it.Pinned && !seen[it.AppID] {
			seen[it.AppID] = true
			ids = append(ids, it.AppID)
		}
	}
	return ids
}

func (m Model) moveSelected(delta int) tea.Cmd {
	item, ok := m.selected()
	if !ok {
		return nil
	}
	if !item.Pinned {
		return status(item.AppID+" is not pinned", true)
	}

	order := m.favoriteOrder()
	current := -1
	for i, id := range order {
		if id == item.AppID {
			current = i
			break
		}
	}
	target := current + delta
	if current < 0 || target < 0 || target >= len(order) {
		return nil
	}

	appID := item.AppID
	return m.action(fmt.Sprintf("Moved %s to %d", appID, target+1), func(ctx context.Context) error {
		return m.ctrl.Move(ctx, appID, target)
	})
}

// action runs fn against the controller and reports the outcome.
func (m Model) action(success string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			if errors.Is(err, engine.ErrDragDisabled) {
				return statusMsg{text: "Reordering is disabled (enable_drag_source = false)", isErr: true}
			}
			return statusMsg{text: err.Error(), isErr: true}
		}
		return statusMsg{text: success}
	}
}

func status(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

func (m Model) copyToClipboard(text string) tea.Cmd {
	command := m.cfg.Display.ClipboardCmd
	return func() tea.Msg {
		if err := copyText(text, command); err != nil {
			return statusMsg{text: "Copy failed: " + err.Error(), isErr: true}
		}
		return statusMsg{text: "Copied to clipboard"}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var sb strings.Builder
	sb.WriteString(m.list.View())
	sb.WriteString("\n")

	switch {
	case m.statusMsg == "":
		sb.WriteString(dimStyle.Render(m.summary()))
	case m.statusErr:
		sb.WriteString(errStyle.Render(m.statusMsg))
	default:
		sb.WriteString(okStyle.Render(m.statusMsg))
	}
	sb.WriteString("\n")

	if m.showHelp {
		sb.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		sb.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return sb.String()
}

func (m Model) summary() string {
	counts := model.CountItems(m.items)
	return fmt.Sprintf("%d groups, %d windows, %d placeholders",
		counts[model.ItemGroup], counts[model.ItemWindow], counts[model.ItemPlaceholder])
}

// RunOptions configures Run.
type RunOptions struct {
	Config     *config.Config
	Controller Controller
	// InputTTY reads keys from /dev/tty, for when stdin carries events.
	InputTTY bool
}

// Run starts the TUI and blocks until the user quits.
func Run(opts RunOptions) error {
	m := New(opts.Config, opts.Controller)
	defer m.Close()

	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.InputTTY {
		progOpts = append(progOpts, tea.WithInputTTY())
	}

	_, err := tea.NewProgram(m, progOpts...).Run()
	return err
}
