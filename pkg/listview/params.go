package listview

import (
	"net/url"
	"sort"
	"strconv"
	"sync"

	"github.com/ehr/registry/pkg/pagination"
)

// Query keys used by URLParamStore.
const (
	QueryPage   = "page"
	QueryLimit  = "limit"
	QuerySearch = "q"
)

// ParamStore is the single source of truth for a list view's committed
// page/limit/search tuple. Listeners run synchronously after each change,
// outside any store lock.
type ParamStore interface {
	Params() pagination.Params
	SetPage(page int)
	SetLimit(limit int)
	// SetSearchQuery commits term and resets the page to 1 in one update.
	// An unchanged term is a no-op.
	SetSearchQuery(term string)
	Subscribe(fn func(pagination.Params)) (unsubscribe func())
}

// Navigator is the addressable location a URLParamStore persists into.
// Push creates a new history entry; Replace overwrites the current one.
type Navigator interface {
	Query() url.Values
	Push(q url.Values)
	Replace(q url.Values)
	Listen(fn func(url.Values)) (unlisten func())
}

// URLParamStore keeps the tuple in a Navigator's query string so that
// reloading or moving through history restores the exact view.
type URLParamStore struct {
	nav Navigator
}

func NewURLParamStore(nav Navigator) *URLParamStore {
	return &URLParamStore{nav: nav}
}

func (s *URLParamStore) Params() pagination.Params {
	return paramsFromQuery(s.nav.Query())
}

// SetPage pushes a new history entry unless page is already current.
func (s *URLParamStore) SetPage(page int) {
	q := s.nav.Query()
	if paramsFromQuery(q).Page == page {
		return
	}
	q.Set(QueryPage, strconv.Itoa(page))
	s.nav.Push(q)
}

func (s *URLParamStore) SetLimit(limit int) {
	q := s.nav.Query()
	if paramsFromQuery(q).Limit == limit {
		return
	}
	q.Set(QueryLimit, strconv.Itoa(limit))
	s.nav.Push(q)
}

// SetSearchQuery replaces the current entry so typing does not pollute
// history.
func (s *URLParamStore) SetSearchQuery(term string) {
	q := s.nav.Query()
	if q.Get(QuerySearch) == term {
		return
	}
	if term == "" {
		q.Del(QuerySearch)
	} else {
		q.Set(QuerySearch, term)
	}
	q.Set(QueryPage, "1")
	s.nav.Replace(q)
}

func (s *URLParamStore) Subscribe(fn func(pagination.Params)) func() {
	return s.nav.Listen(func(q url.Values) {
		fn(paramsFromQuery(q))
	})
}

func paramsFromQuery(q url.Values) pagination.Params {
	return pagination.Parse(q.Get(QueryPage), q.Get(QueryLimit), q.Get(QuerySearch))
}

// MemoryParamStore holds the tuple in memory. It backs views that are not
// addressable, such as the orders list inside a patient dialog.
type MemoryParamStore struct {
	mu        sync.Mutex
	params    pagination.Params
	listeners listeners[pagination.Params]
}

func NewMemoryParamStore(initial pagination.Params) *MemoryParamStore {
	return &MemoryParamStore{
		params: pagination.Parse(strconv.Itoa(initial.Page), strconv.Itoa(initial.Limit), initial.Search),
	}
}

func (s *MemoryParamStore) Params() pagination.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params
}

func (s *MemoryParamStore) SetPage(page int) {
	s.update(func(p *pagination.Params) {
		*p = pagination.Parse(strconv.Itoa(page), strconv.Itoa(p.Limit), p.Search)
	})
}

func (s *MemoryParamStore) SetLimit(limit int) {
	s.update(func(p *pagination.Params) {
		*p = pagination.Parse(strconv.Itoa(p.Page), strconv.Itoa(limit), p.Search)
	})
}

func (s *MemoryParamStore) SetSearchQuery(term string) {
	s.update(func(p *pagination.Params) {
		if p.Search == term {
			return
		}
		p.Search = term
		p.Page = 1
	})
}

func (s *MemoryParamStore) Subscribe(fn func(pagination.Params)) func() {
	return s.listeners.add(fn)
}

func (s *MemoryParamStore) update(mutate func(*pagination.Params)) {
	s.mu.Lock()
	before := s.params
	mutate(&s.params)
	after := s.params
	s.mu.Unlock()

	if after != before {
		s.listeners.notify(after)
	}
}

// listeners is a concurrency-safe set of callbacks.
type listeners[V any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(V)
}

func (l *listeners[V]) add(fn func(V)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(V))
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// notify calls every listener in registration order.
func (l *listeners[V]) notify(v V) {
	l.mu.Lock()
	ids := make([]int, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	fns := make([]func(V), 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, l.fns[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
