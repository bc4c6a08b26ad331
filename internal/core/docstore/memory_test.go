package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *MemoryStore {
	s := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return s
}

func TestMemoryStore_CreateGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	doc, err := s.Create(ctx, "pages", "home", map[string]any{"title": "Home"})
	require.NoError(t, err)
	assert.Equal(t, "home", doc.ID)

	got, err := s.Get(ctx, "pages", "home")
	require.NoError(t, err)
	assert.Equal(t, "Home", got.String("title"))

	_, err = s.Create(ctx, "pages", "home", map[string]any{})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	_, err = s.Get(ctx, "pages", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_CreateGeneratesID(t *testing.T) {
	doc, err := newTestStore().Create(context.Background(), "pages", "", nil)
	require.NoError(t, err)
	assert.Len(t, doc.ID, 36)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Create(ctx, "pages", "a", map[string]any{"tags": []any{"x"}})
	require.NoError(t, err)

	got, err := s.Get(ctx, "pages", "a")
	require.NoError(t, err)
	got.Data["tags"].([]any)[0] = "mutated"
	got.Data["title"] = "mutated"

	again, err := s.Get(ctx, "pages", "a")
	require.NoError(t, err)
	assert.Equal(t, []any{"x"}, again.Data["tags"])
	assert.NotContains(t, again.Data, "title")
}

func TestMemoryStore_UpdateMerges(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	created, err := s.Create(ctx, "pages", "a", map[string]any{"title": "A", "slug": "a"})
	require.NoError(t, err)

	updated, err := s.Update(ctx, "pages", "a", map[string]any{"title": "B"})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.String("title"))
	assert.Equal(t, "a", updated.String("slug"))
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = s.Update(ctx, "pages", "missing", nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	first, err := s.Put(ctx, "meta", "row", map[string]any{"metaValue": "1", "extra": true})
	require.NoError(t, err)
	second, err := s.Put(ctx, "meta", "row", map[string]any{"metaValue": "2"})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, map[string]any{"metaValue": "2"}, second.Data)

	res, err := s.List(ctx, "meta")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	_, err := s.Create(ctx, "pages", "a", nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "pages", "a"))
	assert.ErrorIs(t, s.Delete(ctx, "pages", "a"), ErrNotFound)
}

func TestMemoryStore_ListQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for _, d := range []struct {
		id        string
		published bool
		order     int
	}{
		{"c", true, 3}, {"a", true, 1}, {"b", false, 2}, {"d", true, 10},
	} {
		_, err := s.Create(ctx, "services", d.id, map[string]any{"published": d.published, "sortOrder": d.order})
		require.NoError(t, err)
	}

	res, err := s.List(ctx, "services")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b", "d"}, ids(res), "insertion order without explicit ordering")

	res, err = s.List(ctx, "services", Equal("published", true), OrderAsc("sortOrder"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, ids(res), "numeric ordering, not lexical")

	res, err = s.List(ctx, "services", OrderDesc("sortOrder"), Limit(2), Offset(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, ids(res))
	assert.Equal(t, 4, res.Total)

	res, err = s.List(ctx, "services", Equal("published", "true"))
	require.NoError(t, err)
	assert.Len(t, res.Documents, 3, "equality compares text forms")

	res, err = s.List(ctx, "services", Equal(FieldID, "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(res))

	res, err = s.List(ctx, "services", Offset(10))
	require.NoError(t, err)
	assert.Empty(t, res.Documents)
	assert.Equal(t, 4, res.Total)
}

func TestMemoryStore_ListRejectsBadQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.List(ctx, "pages", Equal("data'; drop", 1))
	assert.ErrorIs(t, err, ErrInvalidField)

	_, err = s.List(ctx, "pages", Limit(-1))
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestTextValue(t *testing.T) {
	assert.Equal(t, "", TextValue(nil))
	assert.Equal(t, "abc", TextValue("abc"))
	assert.Equal(t, "true", TextValue(true))
	assert.Equal(t, "42", TextValue(42))
	assert.Equal(t, "42", TextValue(42.0))
	assert.Equal(t, "1.5", TextValue(1.5))
	assert.Equal(t, `["a","b"]`, TextValue([]string{"a", "b"}))
}

func ids(res *ListResult) []string {
	out := make([]string, 0, len(res.Documents))
	for _, d := range res.Documents {
		out = append(out, d.ID)
	}
	return out
}
