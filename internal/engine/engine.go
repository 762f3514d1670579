package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jmylchreest/applist/internal/config"
	"github.com/jmylchreest/applist/internal/core"
	"github.com/jmylchreest/applist/internal/model"
)

var (
	// ErrEngineClosed is returned when posting to an engine whose loop has exited.
	ErrEngineClosed = errors.New("engine closed")
	// ErrDragDisabled is returned by Reorder and Move when the drag source is disabled.
	ErrDragDisabled = errors.New("drag source disabled")
	// ErrConfigWriteFailed wraps persistence failures reported by the writer.
	ErrConfigWriteFailed = errors.New("config write failed")
)

const eventBuffer = 64

// Persister stores favorites changes. Implementations are called from a
// single writer goroutine.
type Persister interface {
	AddPinned(id string) error
	RemovePinned(id string) error
	UpdatePinned(ids []string) error
}

// Update is a published display list.
type Update struct {
	Version uint64
	Items   []model.DisplayItem
}

// Stats summarizes the latest recompute.
type Stats struct {
	Windows uint32 // Windows in the table, visible or not
	Pinned  uint32
	Items   uint32
}

type request struct {
	apply func() (bool, error)
	reply chan error
}

type writeOp int

const (
	writeAdd writeOp = iota
	writeRemove
	writeUpdate
)

type writeRequest struct {
	op  writeOp
	id  string
	ids []string
}

// Engine serializes all mutations of the app-list state through one loop.
type Engine struct {
	logger    *slog.Logger
	persister Persister

	// Owned by the loop goroutine.
	state       *core.State
	dragEnabled bool

	events   chan model.Event
	requests chan request
	done     chan struct{}
	started  bool

	onWriteError func(error)

	// Favorites writes waiting for the writer goroutine. The queue is
	// unbounded so a slow persister never stalls the loop.
	writeMu sync.Mutex
	writes  []writeRequest
	wake    chan struct{}

	mu          sync.RWMutex
	items       []model.DisplayItem
	stats       Stats
	version     uint64
	subscribers []chan Update
}

// New creates an engine from a configuration snapshot. A nil persister
// disables persistence; a nil logger uses slog.Default().
func New(cfg *config.Config, persister Persister, logger *slog.Logger) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		logger:    logger,
		persister: persister,
		state:     core.NewState(cfg.AppList.Favorites, optionsFrom(cfg), cfg.Display.BoundOutput),
		events:    make(chan model.Event, eventBuffer),
		requests:  make(chan request),
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	e.dragEnabled = cfg.AppList.EnableDragSource
	e.recompute()
	return e
}

func optionsFrom(cfg *config.Config) core.Options {
	return core.Options{
		FilterMode:  cfg.AppList.FilterMode(),
		Ungrouped:   cfg.AppList.UngroupedWindows,
		MaxTitleLen: cfg.Display.MaxTitleLen,
	}
}

// SetWriteErrorCallback sets a function called for every failed write.
// Must be called before Run.
func (e *Engine) SetWriteErrorCallback(fn func(error)) {
	e.onWriteError = fn
}

// Run processes events and requests until ctx is cancelled, then waits for
// pending writes to finish. Run must be called exactly once.
func (e *Engine) Run(ctx context.Context) error {
	if e.started {
		return errors.New("engine already running")
	}
	e.started = true

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.writeLoop()
	}()

	defer func() {
		close(e.done)
		wg.Wait()
		e.closeSubscribers()
	}()

	e.logger.Debug("engine started")
	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("engine stopping")
			return nil
		case ev := <-e.events:
			if e.state.ApplyEvent(ev) {
				e.recompute()
			}
		case req := <-e.requests:
			changed, err := req.apply()
			if changed {
				e.recompute()
			}
			req.reply <- err
		}
	}
}

// HandleEvent queues a compositor event. Invalid events are dropped with
// a debug log.
func (e *Engine) HandleEvent(ctx context.Context, ev model.Event) error {
	err := ev.Normalize()
	if err == nil {
		err = ev.Validate()
	}
	if err != nil {
		e.logger.Debug("dropping invalid event", "type", ev.Type, "error", err)
		return nil
	}

	select {
	case <-e.done:
		return ErrEngineClosed
	default:
	}

	select {
	case e.events <- ev:
		return nil
	case <-e.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pin adds an application to the favorites.
func (e *Engine) Pin(ctx context.Context, appID string) error {
	return e.do(ctx, func() (bool, error) {
		if appID == "" || !e.state.Favorites.Pin(appID) {
			return false, nil
		}
		e.persist(writeRequest{op: writeAdd, id: appID})
		return true, nil
	})
}

// Unpin removes an application from the favorites.
func (e *Engine) Unpin(ctx context.Context, appID string) error {
	return e.do(ctx, func() (bool, error) {
		if !e.state.Favorites.Unpin(appID) {
			return false, nil
		}
		e.persist(writeRequest{op: writeRemove, id: appID})
		return true, nil
	})
}

// Reorder replaces the favorites order.
func (e *Engine) Reorder(ctx context.Context, ids []string) error {
	ids = slices.Clone(ids)
	return e.do(ctx, func() (bool, error) {
		if !e.dragEnabled {
			return false, ErrDragDisabled
		}
		changed, err := e.state.Favorites.Reorder(ids)
		if err != nil || !changed {
			return false, err
		}
		e.persist(writeRequest{op: writeUpdate, ids: e.state.Favorites.IDs()})
		return true, nil
	})
}

// Move places a pinned application at index.
func (e *Engine) Move(ctx context.Context, appID string, index int) error {
	return e.do(ctx, func() (bool, error) {
		if !e.dragEnabled {
			return false, ErrDragDisabled
		}
		changed, err := e.state.Favorites.Move(appID, index)
		if err != nil || !changed {
			return false, err
		}
		e.persist(writeRequest{op: writeUpdate, ids: e.state.Favorites.IDs()})
		return true, nil
	})
}

// SetUngrouped switches between grouped and ungrouped presentation
// without touching the configuration file.
func (e *Engine) SetUngrouped(ctx context.Context, ungrouped bool) error {
	return e.do(ctx, func() (bool, error) {
		if e.state.Options.Ungrouped == ungrouped {
			return false, nil
		}
		e.state.Options.Ungrouped = ungrouped
		return true, nil
	})
}

// ApplyConfig replaces favorites, options and the bound output with a
// configuration snapshot. Nothing is persisted.
func (e *Engine) ApplyConfig(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	favorites := slices.Clone(cfg.AppList.Favorites)
	opts := optionsFrom(cfg)
	bound := cfg.Display.BoundOutput
	drag := cfg.AppList.EnableDragSource

	return e.do(ctx, func() (bool, error) {
		e.dragEnabled = drag
		changed := e.state.Favorites.Replace(favorites)
		if e.state.Output.Bind(bound) {
			changed = true
		}
		if e.state.Options != opts {
			e.state.Options = opts
			changed = true
		}
		return changed, nil
	})
}

// Flush applies every event queued by HandleEvent calls that returned
// before Flush was called, then returns.
func (e *Engine) Flush(ctx context.Context) error {
	return e.do(ctx, func() (bool, error) {
		changed := false
		for {
			select {
			case ev := <-e.events:
				if e.state.ApplyEvent(ev) {
					changed = true
				}
			default:
				return changed, nil
			}
		}
	})
}

// DragEnabled reports whether Reorder and Move are accepted.
func (e *Engine) DragEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.do(ctx, func() (bool, error) {
		enabled = e.dragEnabled
		return false, nil
	})
	return enabled, err
}

func (e *Engine) do(ctx context.Context, fn func() (bool, error)) error {
	req := request{apply: fn, reply: make(chan error, 1)}

	select {
	case e.requests <- req:
	case <-e.done:
		return ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// An accepted request is applied even if the caller stops waiting.
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Items returns the latest display list.
func (e *Engine) Items() []model.DisplayItem {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.items)
}

// Version returns the number of published display lists.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Stats returns counts from the latest recompute.
func (e *Engine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}

// Subscribe returns a channel receiving each newly published display
// list. The channel holds only the most recent update, so slow readers
// skip intermediate lists but never miss the latest one.
func (e *Engine) Subscribe() <-chan Update {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Update, 1)
	ch <- Update{Version: e.version, Items: slices.Clone(e.items)}
	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (e *Engine) Unsubscribe(ch <-chan Update) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, sub := range e.subscribers {
		if sub == ch {
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, sub := range e.subscribers {
		close(sub)
	}
	e.subscribers = nil
}

// recompute runs on the loop goroutine.
func (e *Engine) recompute() {
	items := e.state.Compute()
	stats := Stats{
		Windows: uint32(e.state.Windows.Len()),
		Pinned:  uint32(e.state.Favorites.Len()),
		Items:   uint32(len(items)),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stats = stats
	if e.version > 0 && itemsEqual(e.items, items) {
		return
	}
	e.items = items
	e.version++
	e.notifyChange(Update{Version: e.version, Items: items})
}

func (e *Engine) notifyChange(u Update) {
	for _, ch := range e.subscribers {
		select {
		case <-ch:
			// Replace the stale update
		default:
		}
		select {
		case ch <- Update{Version: u.Version, Items: slices.Clone(u.Items)}:
		default:
		}
	}
}

func itemsEqual(a, b []model.DisplayItem) bool {
	return slices.EqualFunc(a, b, func(x, y model.DisplayItem) bool {
		return x.Kind == y.Kind &&
			x.AppID == y.AppID &&
			x.Title == y.Title &&
			x.Pinned == y.Pinned &&
			x.OpenedAt == y.OpenedAt &&
			slices.Equal(x.Windows, y.Windows)
	})
}

// persist runs on the loop goroutine. Consecutive full-sequence updates
// collapse into the newest one.
func (e *Engine) persist(w writeRequest) {
	if e.persister == nil {
		return
	}

	e.writeMu.Lock()
	if n := len(e.writes); n > 0 && w.op == writeUpdate && e.writes[n-1].op == writeUpdate {
		e.writes[n-1] = w
	} else {
		e.writes = append(e.writes, w)
	}
	e.writeMu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) takeWrites() []writeRequest {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	writes := e.writes
	e.writes = nil
	return writes
}

// writeLoop drains the queue until done is closed, then performs whatever
// is left.
func (e *Engine) writeLoop() {
	for {
		for _, w := range e.takeWrites() {
			e.write(w)
		}
		select {
		case <-e.wake:
		case <-e.done:
			for _, w := range e.takeWrites() {
				e.write(w)
			}
			return
		}
	}
}

func (e *Engine) write(w writeRequest) {
	var err error
	switch w.op {
	case writeAdd:
		err = e.persister.AddPinned(w.id)
	case writeRemove:
		err = e.persister.RemovePinned(w.id)
	case writeUpdate:
		err = e.persister.UpdatePinned(w.ids)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrConfigWriteFailed, err)
		e.logger.Error("failed to persist favorites", "error", err)
		if e.onWriteError != nil {
			e.onWriteError(err)
		}
	}
}
