package listview

import (
	"net/url"
	"sync"
)

// History is an in-memory Navigator with back/forward navigation. Every
// entry is a query string; listeners are told about each location change.
type History struct {
	mu        sync.Mutex
	entries   []url.Values
	index     int
	listeners listeners[url.Values]
}

// NewHistory starts a history whose only entry is initial. A nil initial
// query is an empty location.
func NewHistory(initial url.Values) *History {
	return &History{entries: []url.Values{cloneValues(initial)}}
}

func (h *History) Query() url.Values {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneValues(h.entries[h.index])
}

// Push drops any forward entries and appends q.
func (h *History) Push(q url.Values) {
	h.mu.Lock()
	h.entries = append(h.entries[:h.index+1], cloneValues(q))
	h.index++
	h.mu.Unlock()
	h.listeners.notify(cloneValues(q))
}

func (h *History) Replace(q url.Values) {
	h.mu.Lock()
	h.entries[h.index] = cloneValues(q)
	h.mu.Unlock()
	h.listeners.notify(cloneValues(q))
}

// Back moves to the previous entry. It reports false at the first entry.
func (h *History) Back() bool {
	return h.move(-1)
}

// Forward moves to the next entry. It reports false at the last entry.
func (h *History) Forward() bool {
	return h.move(1)
}

func (h *History) move(delta int) bool {
	h.mu.Lock()
	next := h.index + delta
	if next < 0 || next >= len(h.entries) {
		h.mu.Unlock()
		return false
	}
	h.index = next
	q := cloneValues(h.entries[next])
	h.mu.Unlock()

	h.listeners.notify(q)
	return true
}

// Len is the number of navigable entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Location returns the encoded query of the current entry.
func (h *History) Location() string {
	return h.Query().Encode()
}

func (h *History) Listen(fn func(url.Values)) func() {
	return h.listeners.add(fn)
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}
