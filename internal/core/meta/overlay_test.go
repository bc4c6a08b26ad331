package meta

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyhq/agencysite/internal/core/docstore"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

const coll = "servicesMeta"

var errBackend = errors.New("backend unavailable")

// flakyStore wraps a memory store and fails the selected operations.
type flakyStore struct {
	*docstore.MemoryStore
	failList bool
	failGet  bool
	failPut  func(data map[string]any) bool
	puts     atomic.Int32
}

func (s *flakyStore) List(ctx context.Context, c string, q ...docstore.Query) (*docstore.ListResult, error) {
	if s.failList {
		return nil, errBackend
	}
	return s.MemoryStore.List(ctx, c, q...)
}

func (s *flakyStore) Get(ctx context.Context, c, id string) (*docstore.Document, error) {
	if s.failGet {
		return nil, errBackend
	}
	return s.MemoryStore.Get(ctx, c, id)
}

func (s *flakyStore) Put(ctx context.Context, c, id string, data map[string]any) (*docstore.Document, error) {
	s.puts.Add(1)
	if s.failPut != nil && s.failPut(data) {
		return nil, errBackend
	}
	return s.MemoryStore.Put(ctx, c, id, data)
}

func newOverlay() (*Overlay, *flakyStore) {
	store := &flakyStore{MemoryStore: docstore.NewMemoryStore()}
	return NewOverlay(store, logger.Nop()), store
}

func countRows(t *testing.T, s docstore.Store, entityID, key string) int {
	t.Helper()
	res, err := s.List(context.Background(), coll, docstore.Equal(FieldEntityID, entityID), docstore.Equal(FieldMetaKey, key))
	require.NoError(t, err)
	return len(res.Documents)
}

func TestOverlay_SetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	o, _ := newOverlay()

	values := map[string]any{
		"title":   "Web Design",
		"flag":    true,
		"object":  map[string]any{"a": "b", "n": float64(2)},
		"list":    []any{"x", "y"},
		"empty":   nil,
		"decimal": 1.5,
	}
	for k, v := range values {
		require.NoError(t, o.Set(ctx, coll, "e1", k, v))
	}

	assert.Equal(t, "Web Design", o.Get(ctx, coll, "e1", "title", nil))
	assert.Equal(t, true, o.Get(ctx, coll, "e1", "flag", nil))
	assert.Equal(t, map[string]any{"a": "b", "n": float64(2)}, o.Get(ctx, coll, "e1", "object", nil))
	assert.Equal(t, []any{"x", "y"}, o.Get(ctx, coll, "e1", "list", nil))
	assert.Equal(t, "", o.Get(ctx, coll, "e1", "empty", "default"))
	assert.Equal(t, 1.5, o.Get(ctx, coll, "e1", "decimal", nil))
	assert.Equal(t, "default", o.Get(ctx, coll, "e1", "missing", "default"))
}

func TestOverlay_SetTwiceKeepsOneRow(t *testing.T) {
	ctx := context.Background()
	o, store := newOverlay()

	require.NoError(t, o.Set(ctx, coll, "e1", "seo_title", "first"))
	require.NoError(t, o.Set(ctx, coll, "e1", "seo_title", "second"))

	assert.Equal(t, 1, countRows(t, store, "e1", "seo_title"))
	assert.Equal(t, "second", o.Get(ctx, coll, "e1", "seo_title", nil))
}

func TestOverlay_SetRemovesLegacyDuplicates(t *testing.T) {
	ctx := context.Background()
	o, store := newOverlay()

	legacy := func(v string) {
		_, err := store.Create(ctx, coll, "", map[string]any{FieldEntityID: "e1", FieldMetaKey: "k", FieldMetaValue: v})
		require.NoError(t, err)
	}
	legacy("a")
	assert.Equal(t, "a", o.Get(ctx, coll, "e1", "k", nil), "legacy rows are still readable")
	legacy("b")

	require.NoError(t, o.Set(ctx, coll, "e1", "k", "c"))
	assert.Equal(t, 1, countRows(t, store, "e1", "k"))
	assert.Equal(t, "c", o.Get(ctx, coll, "e1", "k", nil))
}

func TestOverlay_GetAllReturnsEveryKey(t *testing.T) {
	ctx := context.Background()
	o, _ := newOverlay()

	want := map[string]any{}
	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("key_%d", i)
		want[key] = fmt.Sprintf("value %d", i)
	}
	require.NoError(t, o.SetMultiple(ctx, coll, "e1", want))
	require.NoError(t, o.Set(ctx, coll, "other", "key_0", "not mine"))

	assert.Equal(t, want, o.GetAll(ctx, coll, "e1"))
	assert.Empty(t, o.GetAll(ctx, coll, "nobody"))
}

func TestOverlay_ReadsFailOpen(t *testing.T) {
	ctx := context.Background()
	o, store := newOverlay()
	require.NoError(t, o.Set(ctx, coll, "e1", "k", "v"))

	store.failList = true
	store.failGet = true

	assert.Empty(t, o.GetAll(ctx, coll, "e1"))
	assert.Equal(t, "fallback", o.Get(ctx, coll, "e1", "k", "fallback"))
	assert.Nil(t, o.FindEntitiesByMeta(ctx, coll, "k", "v"))
}

func TestOverlay_SetPropagatesErrors(t *testing.T) {
	o, store := newOverlay()
	store.failPut = func(map[string]any) bool { return true }

	err := o.Set(context.Background(), coll, "e1", "k", "v")
	assert.ErrorIs(t, err, errBackend)
}

func TestOverlay_SetMultiplePartialFailure(t *testing.T) {
	ctx := context.Background()
	o, store := newOverlay()
	store.failPut = func(data map[string]any) bool { return data[FieldMetaKey] == "bad" }

	err := o.SetMultiple(ctx, coll, "e1", map[string]any{"good": "1", "bad": "2", "fine": "3"})
	assert.ErrorIs(t, err, errBackend)
	assert.EqualValues(t, 3, store.puts.Load(), "every key is attempted")

	got := o.GetAll(ctx, coll, "e1")
	assert.Equal(t, float64(1), got["good"])
	assert.NotContains(t, got, "bad")
}

func TestOverlay_Delete(t *testing.T) {
	ctx := context.Background()
	o, _ := newOverlay()
	require.NoError(t, o.Set(ctx, coll, "e1", "k", "v"))

	found, err := o.Delete(ctx, coll, "e1", "k")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = o.Delete(ctx, coll, "e1", "k")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, o.Get(ctx, coll, "e1", "k", nil))
}

func TestOverlay_DeleteAll(t *testing.T) {
	ctx := context.Background()
	o, _ := newOverlay()
	require.NoError(t, o.SetMultiple(ctx, coll, "e1", map[string]any{"a": 1, "b": 2, "c": 3}))
	require.NoError(t, o.Set(ctx, coll, "e2", "a", 1))

	found, err := o.DeleteAll(ctx, coll, "e1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, o.GetAll(ctx, coll, "e1"))
	assert.Len(t, o.GetAll(ctx, coll, "e2"), 1)

	found, err = o.DeleteAll(ctx, coll, "e1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOverlay_FindEntitiesByMeta(t *testing.T) {
	ctx := context.Background()
	o, _ := newOverlay()

	var inGroup []string
	for i := 0; i < 12; i++ {
		id := fmt.Sprintf("svc-%02d", i)
		group := "other"
		if i%3 == 0 || i == 1 {
			group = "G"
			inGroup = append(inGroup, id)
		}
		require.NoError(t, o.Set(ctx, coll, id, "service_group_id", group))
	}
	require.Len(t, inGroup, 5)

	assert.ElementsMatch(t, inGroup, o.FindEntitiesByMeta(ctx, coll, "service_group_id", "G"))
	assert.Empty(t, o.FindEntitiesByMeta(ctx, coll, "service_group_id", "missing"))
}

func TestOverlay_PurgeOrphans(t *testing.T) {
	ctx := context.Background()
	o, _ := newOverlay()
	require.NoError(t, o.Set(ctx, coll, "live", "k", "v"))
	require.NoError(t, o.SetMultiple(ctx, coll, "dead", map[string]any{"a": 1, "b": 2}))

	n, err := o.PurgeOrphans(ctx, coll, func(_ context.Context, id string) (bool, error) {
		return id == "live", nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, o.GetAll(ctx, coll, "dead"))
	assert.Len(t, o.GetAll(ctx, coll, "live"), 1)
}

func TestKey_Typed(t *testing.T) {
	ctx := context.Background()
	o, _ := newOverlay()

	price := Key[string]{Name: "price"}
	require.NoError(t, price.Set(ctx, o, coll, "e1", "123"))
	assert.Equal(t, "123", price.Get(ctx, o, coll, "e1", ""), "numeric-looking strings stay strings")
	assert.Equal(t, float64(123), o.Get(ctx, coll, "e1", "price", nil), "untyped decode parses JSON")

	flag := Key[bool]{Name: "flag"}
	_, ok := flag.Lookup(ctx, o, coll, "e1")
	assert.False(t, ok)
	require.NoError(t, flag.Set(ctx, o, coll, "e1", true))
	v, ok := flag.Lookup(ctx, o, coll, "e1")
	assert.True(t, ok)
	assert.True(t, v)

	type item struct {
		Name string `json:"name"`
	}
	items := Key[[]item]{Name: "items"}
	require.NoError(t, items.Set(ctx, o, coll, "e1", []item{{Name: "a"}}))
	assert.Equal(t, []item{{Name: "a"}}, items.Get(ctx, o, coll, "e1", nil))

	require.NoError(t, o.Set(ctx, coll, "e1", "count", "not a number"))
	assert.Equal(t, 7, Key[int]{Name: "count"}.Get(ctx, o, coll, "e1", 7))
}
