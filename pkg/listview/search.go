package listview

import (
	"sync"
	"time"

	"github.com/ehr/registry/pkg/pagination"
)

// DefaultSearchDelay is how long raw input must stay unchanged before it is
// committed.
const DefaultSearchDelay = 500 * time.Millisecond

type SearchOption func(*searchConfig)

type searchConfig struct {
	clock Clock
	delay time.Duration
}

func WithClock(c Clock) SearchOption {
	return func(cfg *searchConfig) { cfg.clock = c }
}

func WithDelay(d time.Duration) SearchOption {
	return func(cfg *searchConfig) { cfg.delay = d }
}

// SearchCoordinator separates raw keystroke input from the committed search
// term held by a ParamStore. Raw input is committed once it has been stable
// for the configured delay; the store resets the page in the same update.
type SearchCoordinator struct {
	mu        sync.Mutex
	store     ParamStore
	debounce  *Debouncer
	raw       string
	committed string
	unsub     func()
}

func NewSearchCoordinator(store ParamStore, opts ...SearchOption) *SearchCoordinator {
	cfg := searchConfig{clock: RealClock(), delay: DefaultSearchDelay}
	for _, opt := range opts {
		opt(&cfg)
	}

	term := store.Params().Search
	s := &SearchCoordinator{
		store:     store,
		debounce:  NewDebouncer(cfg.clock, cfg.delay),
		raw:       term,
		committed: term,
	}
	s.unsub = store.Subscribe(s.onParams)
	return s
}

// Input records a keystroke and restarts the commit timer.
func (s *SearchCoordinator) Input(raw string) {
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()

	s.debounce.Trigger(func() { s.commit(raw) })
}

// Flush commits the current raw input immediately.
func (s *SearchCoordinator) Flush() {
	s.debounce.Cancel()
	s.mu.Lock()
	raw := s.raw
	s.mu.Unlock()
	s.commit(raw)
}

func (s *SearchCoordinator) Raw() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

func (s *SearchCoordinator) Committed() string {
	return s.store.Params().Search
}

// Pending reports whether a commit is scheduled.
func (s *SearchCoordinator) Pending() bool {
	return s.debounce.Pending()
}

// Close stops listening to the store and destroys the pending timer.
func (s *SearchCoordinator) Close() {
	s.unsub()
	s.debounce.Close()
}

func (s *SearchCoordinator) commit(term string) {
	s.mu.Lock()
	s.committed = term
	s.mu.Unlock()
	s.store.SetSearchQuery(term)
}

// onParams resynchronizes raw input when the committed term is changed from
// outside, e.g. by navigating back. The pending timer is dropped, not
// restarted.
func (s *SearchCoordinator) onParams(p pagination.Params) {
	s.mu.Lock()
	if p.Search == s.committed {
		s.mu.Unlock()
		return
	}
	s.committed = p.Search
	s.raw = p.Search
	s.mu.Unlock()

	s.debounce.Cancel()
}
