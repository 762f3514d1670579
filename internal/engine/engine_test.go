package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/applist/internal/config"
	"github.com/jmylchreest/applist/internal/core"
	"github.com/jmylchreest/applist/internal/model"
)

type fakePersister struct {
	mu    sync.Mutex
	calls []string
	ids   []string
	err   error
}

func (f *fakePersister) AddPinned(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "add:"+id)
	return f.err
}

func (f *fakePersister) RemovePinned(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "remove:"+id)
	return f.err
}

func (f *fakePersister) UpdatePinned(ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update")
	f.ids = append([]string(nil), ids...)
	return f.err
}

func (f *fakePersister) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func startEngine(t *testing.T, cfg *config.Config, p Persister) (*Engine, context.Context) {
	t.Helper()

	e := New(cfg, p, nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("engine did not stop")
		}
	})
	return e, ctx
}

func configWith(favorites ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.AppList.Favorites = favorites
	return cfg
}

func waitForItems(t *testing.T, e *Engine, cond func([]model.DisplayItem) bool) []model.DisplayItem {
	t.Helper()
	require.Eventually(t, func() bool { return cond(e.Items()) }, 2*time.Second, 5*time.Millisecond)
	return e.Items()
}

func keys(items []model.DisplayItem) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].Key()
	}
	return out
}

func TestNew_PublishesInitialList(t *testing.T) {
	e := New(configWith("firefox", "code"), nil, nil)

	assert.Equal(t, []string{"placeholder:firefox", "placeholder:code"}, keys(e.Items()))
	assert.Equal(t, uint64(1), e.Version())
	assert.Equal(t, Stats{Windows: 0, Pinned: 2, Items: 2}, e.Stats())
}

func TestEngine_HandleEvent(t *testing.T) {
	e, ctx := startEngine(t, configWith("firefox"), nil)

	require.NoError(t, e.HandleEvent(ctx, model.WindowCreated("w1", "firefox", "Mozilla Firefox")))
	require.NoError(t, e.HandleEvent(ctx, model.WindowCreated("w2", "kitty", "zsh")))

	items := waitForItems(t, e, func(items []model.DisplayItem) bool { return len(items) == 2 && items[0].Kind == model.ItemGroup })
	assert.Equal(t, []string{"group:firefox", "group:kitty"}, keys(items))
	assert.True(t, items[0].Pinned)
	assert.False(t, items[1].Pinned)

	require.NoError(t, e.HandleEvent(ctx, model.WindowClosed("w1")))
	items = waitForItems(t, e, func(items []model.DisplayItem) bool { return len(items) == 2 && items[0].Kind == model.ItemPlaceholder })
	assert.Equal(t, []string{"placeholder:firefox", "group:kitty"}, keys(items))
	assert.Equal(t, uint32(1), e.Stats().Windows)
}

func TestEngine_HandleEventDropsInvalid(t *testing.T) {
	e, ctx := startEngine(t, configWith(), nil)

	assert.NoError(t, e.HandleEvent(ctx, model.Event{Type: "bogus", ID: "w1"}))
	assert.NoError(t, e.HandleEvent(ctx, model.Event{Type: model.EventWindowCreated}))
	assert.NoError(t, e.HandleEvent(ctx, model.WindowTitleChanged("unknown", "x")))

	require.NoError(t, e.HandleEvent(ctx, model.WindowCreated("w2", "kitty", "zsh")))
	items := waitForItems(t, e, func(items []model.DisplayItem) bool { return len(items) == 1 })
	assert.Equal(t, []string{"group:kitty"}, keys(items))
}

func TestEngine_PinUnpinPersists(t *testing.T) {
	p := &fakePersister{}
	e, ctx := startEngine(t, configWith(), p)

	require.NoError(t, e.Pin(ctx, "code"))
	require.NoError(t, e.Pin(ctx, "code"))
	require.NoError(t, e.Pin(ctx, ""))
	assert.Equal(t, []string{"placeholder:code"}, keys(e.Items()))

	require.NoError(t, e.Unpin(ctx, "code"))
	require.NoError(t, e.Unpin(ctx, "missing"))
	assert.Empty(t, e.Items())

	require.Eventually(t, func() bool { return len(p.Calls()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"add:code", "remove:code"}, p.Calls())
}

func TestEngine_Reorder(t *testing.T) {
	p := &fakePersister{}
	e, ctx := startEngine(t, configWith("a", "b", "c"), p)

	require.NoError(t, e.Reorder(ctx, []string{"c", "a", "b"}))
	assert.Equal(t, []string{"placeholder:c", "placeholder:a", "placeholder:b"}, keys(e.Items()))

	err := e.Reorder(ctx, []string{"a", "a"})
	assert.ErrorIs(t, err, core.ErrInvalidFavoriteReorder)
	assert.Equal(t, []string{"placeholder:c", "placeholder:a", "placeholder:b"}, keys(e.Items()))

	require.NoError(t, e.Move(ctx, "b", 0))
	assert.Equal(t, []string{"placeholder:b", "placeholder:c", "placeholder:a"}, keys(e.Items()))

	assert.ErrorIs(t, e.Move(ctx, "zzz", 0), core.ErrUnknownFavorite)

	// Queued full-sequence updates may collapse, the last one always lands
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return slices.Equal([]string{"b", "c", "a"}, p.ids)
	}, 2*time.Second, 5*time.Millisecond)
}

// blockingPersister holds every write until release is closed.
type blockingPersister struct {
	fakePersister
	release chan struct{}
}

func (b *blockingPersister) AddPinned(id string) error {
	<-b.release
	return b.fakePersister.AddPinned(id)
}

func (b *blockingPersister) RemovePinned(id string) error {
	<-b.release
	return b.fakePersister.RemovePinned(id)
}

func (b *blockingPersister) UpdatePinned(ids []string) error {
	<-b.release
	return b.fakePersister.UpdatePinned(ids)
}

func TestEngine_SlowPersisterDoesNotBlockLoop(t *testing.T) {
	p := &blockingPersister{release: make(chan struct{})}
	e, ctx := startEngine(t, configWith(), p)
	released := false
	release := func() {
		if !released {
			close(p.release)
			released = true
		}
	}
	defer release()

	const pins = 200
	for i := range pins {
		callCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := e.Pin(callCtx, fmt.Sprintf("app-%d", i))
		cancel()
		require.NoError(t, err, "pin %d", i)
	}

	callCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	enabled, err := e.DragEnabled(callCtx)
	require.NoError(t, err)
	assert.True(t, enabled)
	assert.Equal(t, uint32(pins), e.Stats().Pinned)
	assert.Empty(t, p.Calls())

	release()
	require.Eventually(t, func() bool { return len(p.Calls()) == pins }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, "add:app-0", p.Calls()[0])
	assert.Equal(t, fmt.Sprintf("add:app-%d", pins-1), p.Calls()[pins-1])
}

func TestEngine_QueuedReordersCollapse(t *testing.T) {
	p := &blockingPersister{release: make(chan struct{})}
	e, ctx := startEngine(t, configWith("a", "b", "c"), p)

	require.NoError(t, e.Pin(ctx, "d"))
	require.NoError(t, e.Reorder(ctx, []string{"b", "a", "c", "d"}))
	require.NoError(t, e.Reorder(ctx, []string{"c", "b", "a", "d"}))
	require.NoError(t, e.Move(ctx, "d", 0))

	close(p.release)
	require.Eventually(t, func() bool { return len(p.Calls()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"add:d", "update"}, p.Calls())

	p.mu.Lock()
	defer p.mu.Unlock()
	assert.Equal(t, []string{"d", "c", "b", "a"}, p.ids)
}

func TestEngine_DragDisabled(t *testing.T) {
	cfg := configWith("a", "b")
	cfg.AppList.EnableDragSource = false
	p := &fakePersister{}
	e, ctx := startEngine(t, cfg, p)

	assert.ErrorIs(t, e.Reorder(ctx, []string{"b", "a"}), ErrDragDisabled)
	assert.ErrorIs(t, e.Move(ctx, "b", 0), ErrDragDisabled)
	assert.Equal(t, []string{"placeholder:a", "placeholder:b"}, keys(e.Items()))

	// Pinning is not a drag operation
	require.NoError(t, e.Pin(ctx, "c"))

	enabled, err := e.DragEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestEngine_WriteFailureKeepsState(t *testing.T) {
	p := &fakePersister{err: errors.New("disk full")}
	e := New(configWith(), p, nil)

	errs := make(chan error, 4)
	e.SetWriteErrorCallback(func(err error) { errs <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = e.Run(ctx) }()

	require.NoError(t, e.Pin(ctx, "code"))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrConfigWriteFailed)
	case <-time.After(2 * time.Second):
		t.Fatal("expected write failure")
	}
	assert.Equal(t, []string{"placeholder:code"}, keys(e.Items()), "no rollback on write failure")
}

func TestEngine_ApplyConfig(t *testing.T) {
	p := &fakePersister{}
	e, ctx := startEngine(t, configWith("firefox"), p)

	require.NoError(t, e.HandleEvent(ctx, model.Event{
		Type: model.EventWindowCreated, ID: "w1", AppID: "kitty", Title: "a very long terminal title", Outputs: []string{"DP-1"},
	}))
	waitForItems(t, e, func(items []model.DisplayItem) bool { return len(items) == 2 })

	cfg := configWith("kitty")
	cfg.AppList.UngroupedWindows = true
	cfg.AppList.EnableDragSource = false
	cfg.AppList.SetFilterMode(model.FilterConfiguredOutput)
	cfg.Display.BoundOutput = "DP-1"
	require.NoError(t, e.ApplyConfig(ctx, cfg))

	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, model.ItemWindow, items[0].Kind)
	assert.Equal(t, "a very long termi...", items[0].Title)
	assert.True(t, items[0].Pinned)

	assert.ErrorIs(t, e.Move(ctx, "kitty", 0), ErrDragDisabled)
	assert.Empty(t, p.Calls(), "config snapshots are not written back")
}

func TestEngine_ConfigReloadIgnoresOwnWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.DefaultConfig().Save(path))

	persister := config.NewFilePersister(path)
	e, ctx := startEngine(t, config.DefaultConfig(), persister)

	w, err := config.NewWatcher(path, nil)
	require.NoError(t, err)
	w.SetIgnoreFunc(persister.Wrote)
	w.SetReloadCallback(func(cfg *config.Config) {
		assert.NoError(t, e.ApplyConfig(ctx, cfg))
	})
	require.NoError(t, w.Start())
	defer w.Stop()

	favorites := func() []string {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil
		}
		return cfg.AppList.Favorites
	}

	require.NoError(t, e.Pin(ctx, "a"))
	require.NoError(t, e.Pin(ctx, "b"))
	require.NoError(t, e.Unpin(ctx, "b"))
	require.Eventually(t, func() bool {
		return slices.Equal([]string{"a"}, favorites())
	}, 5*time.Second, 10*time.Millisecond)

	// A hand edit after the daemon's writes still wins
	external := config.DefaultConfig()
	external.AppList.Favorites = []string{"a", "c"}
	require.NoError(t, external.Save(path))

	items := waitForItems(t, e, func(items []model.DisplayItem) bool { return len(items) == 2 })
	assert.Equal(t, []string{"placeholder:a", "placeholder:c"}, keys(items))
}

func TestEngine_SetUngrouped(t *testing.T) {
	e, ctx := startEngine(t, configWith(), nil)

	require.NoError(t, e.HandleEvent(ctx, model.WindowCreated("w1", "kitty", "one")))
	require.NoError(t, e.HandleEvent(ctx, model.WindowCreated("w2", "kitty", "two")))
	waitForItems(t, e, func(items []model.DisplayItem) bool { return len(items) == 1 && items[0].WindowCount() == 2 })

	require.NoError(t, e.SetUngrouped(ctx, true))
	assert.Equal(t, []string{"window:w1", "window:w2"}, keys(e.Items()))
}

func TestEngine_Subscribe(t *testing.T) {
	e, ctx := startEngine(t, configWith(), nil)

	sub := e.Subscribe()
	initial := <-sub
	assert.Empty(t, initial.Items)

	require.NoError(t, e.Pin(ctx, "code"))
	select {
	case u := <-sub:
		assert.Greater(t, u.Version, initial.Version)
		assert.Equal(t, []string{"placeholder:code"}, keys(u.Items))
	case <-time.After(2 * time.Second):
		t.Fatal("no update published")
	}

	// Unchanged recomputes do not publish
	version := e.Version()
	require.NoError(t, e.Pin(ctx, "code"))
	assert.Equal(t, version, e.Version())

	e.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok)
}

func TestEngine_ClosedAfterRun(t *testing.T) {
	e := New(configWith(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = e.Run(ctx)
		close(done)
	}()
	sub := e.Subscribe()
	cancel()
	<-done

	assert.ErrorIs(t, e.Pin(context.Background(), "code"), ErrEngineClosed)
	assert.ErrorIs(t, e.HandleEvent(context.Background(), model.WindowCreated("w1", "a", "b")), ErrEngineClosed)

	<-sub // initial
	_, ok := <-sub
	assert.False(t, ok)
}

func TestEngine_Flush(t *testing.T) {
	e, ctx := startEngine(t, configWith("kitty"), nil)

	require.NoError(t, e.HandleEvent(ctx, model.WindowCreated("w1", "kitty", "one")))
	require.NoError(t, e.HandleEvent(ctx, model.WindowCreated("w2", "foot", "two")))
	require.NoError(t, e.HandleEvent(ctx, model.WindowClosed("w2")))
	require.NoError(t, e.Flush(ctx))

	assert.Equal(t, []string{"group:kitty"}, keys(e.Items()))
}
