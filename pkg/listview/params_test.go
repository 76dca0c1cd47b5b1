package listview

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/registry/pkg/pagination"
)

func TestURLParamStore_Defaults(t *testing.T) {
	store := NewURLParamStore(NewHistory(nil))

	assert.Equal(t, pagination.Params{Page: 1, Limit: 5}, store.Params())
}

func TestURLParamStore_PageAndLimitPushEntries(t *testing.T) {
	h := NewHistory(nil)
	store := NewURLParamStore(h)

	store.SetPage(3)
	store.SetLimit(10)

	assert.Equal(t, 3, h.Len())
	assert.Equal(t, pagination.Params{Page: 3, Limit: 10}, store.Params())

	require.True(t, h.Back())
	assert.Equal(t, pagination.Params{Page: 3, Limit: 5}, store.Params())
	require.True(t, h.Back())
	assert.Equal(t, pagination.Params{Page: 1, Limit: 5}, store.Params())
	assert.False(t, h.Back())

	require.True(t, h.Forward())
	assert.Equal(t, 3, store.Params().Page)
}

func TestURLParamStore_UnchangedPageIsNoop(t *testing.T) {
	h := NewHistory(nil)
	store := NewURLParamStore(h)

	store.SetPage(1)
	store.SetLimit(5)

	assert.Equal(t, 1, h.Len())
}

func TestURLParamStore_SearchReplacesAndResetsPage(t *testing.T) {
	h := NewHistory(url.Values{"page": {"4"}, "limit": {"20"}})
	store := NewURLParamStore(h)

	var seen []pagination.Params
	store.Subscribe(func(p pagination.Params) { seen = append(seen, p) })

	store.SetSearchQuery("john")

	assert.Equal(t, 1, h.Len(), "search must not create a history entry")
	assert.Equal(t, pagination.Params{Page: 1, Limit: 20, Search: "john"}, store.Params())
	require.Len(t, seen, 1, "term and page must change in one update")
	assert.Equal(t, pagination.Params{Page: 1, Limit: 20, Search: "john"}, seen[0])
}

func TestURLParamStore_SameSearchIsNoop(t *testing.T) {
	h := NewHistory(url.Values{"page": {"4"}, "q": {"john"}})
	store := NewURLParamStore(h)

	calls := 0
	store.Subscribe(func(pagination.Params) { calls++ })
	store.SetSearchQuery("john")

	assert.Zero(t, calls)
	assert.Equal(t, 4, store.Params().Page)
}

func TestURLParamStore_EmptySearchClearsQuery(t *testing.T) {
	h := NewHistory(url.Values{"q": {"john"}})
	store := NewURLParamStore(h)

	store.SetSearchQuery("")

	assert.Equal(t, "page=1", h.Location())
}

func TestURLParamStore_ReloadRestoresState(t *testing.T) {
	h := NewHistory(nil)
	store := NewURLParamStore(h)
	store.SetPage(2)
	store.SetSearchQuery("ann")
	store.SetPage(3)

	q, err := url.ParseQuery(h.Location())
	require.NoError(t, err)
	assert.Equal(t, store.Params(), NewURLParamStore(NewHistory(q)).Params())
}

func TestMemoryParamStore(t *testing.T) {
	store := NewMemoryParamStore(pagination.Params{})
	assert.Equal(t, pagination.Params{Page: 1, Limit: 5}, store.Params())

	calls := 0
	unsub := store.Subscribe(func(pagination.Params) { calls++ })

	store.SetPage(3)
	store.SetPage(3)
	assert.Equal(t, 1, calls, "unchanged page must not notify")

	store.SetLimit(500)
	assert.Equal(t, pagination.MaxLimit, store.Params().Limit)

	store.SetSearchQuery("x")
	assert.Equal(t, pagination.Params{Page: 1, Limit: pagination.MaxLimit, Search: "x"}, store.Params())

	unsub()
	store.SetPage(2)
	assert.Equal(t, 3, calls)
}
