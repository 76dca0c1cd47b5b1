// Package listview holds the query state of a paginated, searchable list
// view: the committed page/limit/search tuple, debounced search input, and
// a controller that fetches one page per committed change.
package listview

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ehr/registry/pkg/pagination"
)

// State is the lifecycle of a list view's data.
type State int

const (
	Idle State = iota
	Loading
	Loaded
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Fetcher loads one page for parent, which is empty for top-level lists.
type Fetcher[T any] func(ctx context.Context, parent string, p pagination.Params) (*pagination.Page[T], error)

// Snapshot is an immutable view of a controller's state. Page keeps the last
// successful result while a newer request is loading or has failed.
type Snapshot[T any] struct {
	State   State
	Parent  string
	Params  pagination.Params
	Page    *pagination.Page[T]
	Err     error
	Version uint64 // increases with every state change
}

type ControllerOption func(*controllerConfig)

type controllerConfig struct {
	parent        string
	requireParent bool
	logger        zerolog.Logger
}

// WithParent binds the controller to a parent key and makes the key
// mandatory: without one no request is issued.
func WithParent(parent string) ControllerOption {
	return func(cfg *controllerConfig) {
		cfg.parent = parent
		cfg.requireParent = true
	}
}

func WithLogger(l zerolog.Logger) ControllerOption {
	return func(cfg *controllerConfig) { cfg.logger = l }
}

// Controller issues exactly one fetch per change of the committed tuple and
// applies only the result of the most recently issued request. Superseded
// requests have their context cancelled.
type Controller[T any] struct {
	fetch  Fetcher[T]
	store  ParamStore
	logger zerolog.Logger

	ctx   context.Context
	stop  context.CancelFunc
	unsub func()
	wg    sync.WaitGroup

	mu            sync.Mutex
	snap          Snapshot[T]
	requireParent bool
	seq           uint64
	cancel        context.CancelFunc
	issued        int
	closed        bool
	subscribers   listeners[Snapshot[T]]

	dispatchMu  sync.Mutex
	queue       []Snapshot[T]
	dispatching bool
	delivered   uint64
}

// NewController subscribes to store and issues the first fetch for its
// current tuple.
func NewController[T any](store ParamStore, fetch Fetcher[T], opts ...ControllerOption) *Controller[T] {
	cfg := controllerConfig{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, stop := context.WithCancel(context.Background())
	c := &Controller[T]{
		fetch:         fetch,
		store:         store,
		logger:        cfg.logger,
		ctx:           ctx,
		stop:          stop,
		requireParent: cfg.requireParent,
		snap: Snapshot[T]{
			State:  Idle,
			Parent: cfg.parent,
			Params: store.Params(),
		},
	}
	c.unsub = store.Subscribe(c.onParams)

	c.mu.Lock()
	snap, changed := c.issueLocked()
	c.mu.Unlock()
	if changed {
		c.publish(snap)
	}
	return c
}

func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Subscribe registers fn for state changes. Calls are serialized and arrive
// in version order; a snapshot older than one already delivered is skipped,
// so the last call a subscriber sees always matches Snapshot.
func (c *Controller[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	return c.subscribers.add(fn)
}

// Issued is the number of fetches started so far.
func (c *Controller[T]) Issued() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issued
}

// Refetch re-issues the request for the current tuple unconditionally.
func (c *Controller[T]) Refetch() {
	c.mu.Lock()
	snap, changed := c.issueLocked()
	c.mu.Unlock()
	if changed {
		c.publish(snap)
	}
}

// SetParent switches the parent key. Data from the previous parent is
// dropped. An empty key on a controller that requires one leaves it idle.
func (c *Controller[T]) SetParent(parent string) {
	c.mu.Lock()
	if parent == c.snap.Parent {
		c.mu.Unlock()
		return
	}
	c.snap.Parent = parent
	c.snap.Page = nil
	c.snap.Err = nil
	snap, changed := c.issueLocked()
	if !changed {
		c.snap.Version++
		snap = c.snap
	}
	c.mu.Unlock()
	c.publish(snap)
}

// Wait blocks until every issued fetch has returned.
func (c *Controller[T]) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight fetches and detaches from the store.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.seq++
	c.mu.Unlock()

	c.unsub()
	c.stop()
	c.wg.Wait()
}

func (c *Controller[T]) onParams(p pagination.Params) {
	c.mu.Lock()
	if p == c.snap.Params && c.snap.State != Idle {
		c.mu.Unlock()
		return
	}
	c.snap.Params = p
	snap, changed := c.issueLocked()
	c.mu.Unlock()
	if changed {
		c.publish(snap)
	}
}

// issueLocked starts a fetch for the current tuple and supersedes any
// request in flight. Callers hold c.mu.
func (c *Controller[T]) issueLocked() (Snapshot[T], bool) {
	if c.closed {
		return c.snap, false
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++

	if c.requireParent && c.snap.Parent == "" {
		if c.snap.State == Idle {
			return c.snap, false
		}
		c.snap.State = Idle
		c.snap.Version++
		return c.snap, true
	}

	ctx, cancel := context.WithCancel(c.ctx)
	c.cancel = cancel
	c.issued++
	c.snap.State = Loading
	c.snap.Err = nil
	c.snap.Version++

	seq, parent, params := c.seq, c.snap.Parent, c.snap.Params
	c.wg.Add(1)
	go c.run(ctx, cancel, seq, parent, params)
	return c.snap, true
}

func (c *Controller[T]) run(ctx context.Context, cancel context.CancelFunc, seq uint64, parent string, params pagination.Params) {
	defer c.wg.Done()
	defer cancel()

	page, err := c.fetch(ctx, parent, params)

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug().Uint64("seq", seq).Msg("discarding superseded list result")
		return
	}
	c.cancel = nil
	if err != nil {
		c.snap.State = Failed
		c.snap.Err = err
		c.logger.Warn().Err(err).
			Str("parent", parent).
			Int("page", params.Page).
			Int("limit", params.Limit).
			Str("search", params.Search).
			Msg("list fetch failed")
	} else {
		c.snap.State = Loaded
		c.snap.Page = page
	}
	c.snap.Version++
	snap := c.snap
	c.mu.Unlock()

	c.publish(snap)
}

// publish hands snap to subscribers. Snapshots are built under c.mu but
// published after it is released, so publishers can race; whoever finds the
// dispatcher idle drains the queue for everyone and stale versions are
// dropped. A subscriber may call back into the controller.
func (c *Controller[T]) publish(snap Snapshot[T]) {
	c.dispatchMu.Lock()
	c.queue = append(c.queue, snap)
	if c.dispatching {
		c.dispatchMu.Unlock()
		return
	}
	c.dispatching = true
	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		if next.Version <= c.delivered {
			continue
		}
		c.delivered = next.Version
		c.dispatchMu.Unlock()
		c.subscribers.notify(next)
		c.dispatchMu.Lock()
	}
	c.dispatching = false
	c.dispatchMu.Unlock()
}
