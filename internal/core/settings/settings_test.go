package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyhq/agencysite/internal/core/docstore"
	"github.com/agencyhq/agencysite/internal/core/validation"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

type brokenStore struct {
	*docstore.MemoryStore
}

func (brokenStore) List(context.Context, string, ...docstore.Query) (*docstore.ListResult, error) {
	return nil, errors.New("down")
}

func (brokenStore) Get(context.Context, string, string) (*docstore.Document, error) {
	return nil, errors.New("down")
}

func newStore(docs docstore.Store) *Store {
	return NewStore(docs, validation.NewValidator(), logger.Nop())
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	s := newStore(docstore.NewMemoryStore())

	err := s.SetMultiple(ctx, map[string]any{
		KeySiteName:     "Northwind Studio",
		KeyContactPhone: "0123 456",
		KeySocialLinks:  map[string]any{"instagram": "https://instagram.com/northwind"},
		"show_banner":   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Northwind Studio", s.String(ctx, KeySiteName, ""))
	assert.Equal(t, "0123 456", s.Get(ctx, KeyContactPhone, nil))
	assert.Equal(t, true, s.Get(ctx, "show_banner", false))
	assert.Equal(t, "fallback", s.Get(ctx, KeyTagline, "fallback"))

	all := s.GetAll(ctx)
	assert.Len(t, all, 4)
	assert.Equal(t, map[string]any{"instagram": "https://instagram.com/northwind"}, all[KeySocialLinks])
}

func TestSet_OneDocumentPerKey(t *testing.T) {
	ctx := context.Background()
	docs := docstore.NewMemoryStore()
	s := newStore(docs)

	require.NoError(t, s.Set(ctx, KeyTagline, "first"))
	require.NoError(t, s.Set(ctx, KeyTagline, "second"))

	res, err := docs.List(ctx, Collection)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "second", s.Get(ctx, KeyTagline, nil))
}

func TestSet_Validates(t *testing.T) {
	ctx := context.Background()
	s := newStore(docstore.NewMemoryStore())

	err := s.Set(ctx, KeyContactEmail, "not an email")
	assert.True(t, validation.IsValidationError(err))

	err = s.Set(ctx, KeySiteName, 42)
	assert.True(t, validation.IsValidationError(err))

	err = s.Set(ctx, "", "x")
	assert.True(t, validation.IsValidationError(err))

	assert.Empty(t, s.GetAll(ctx))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(docstore.NewMemoryStore())

	require.NoError(t, s.Set(ctx, KeyAddress, "1 Main St"))
	ok, err := s.Delete(ctx, KeyAddress)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(ctx, KeyAddress)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadsFailOpen(t *testing.T) {
	ctx := context.Background()
	s := newStore(brokenStore{MemoryStore: docstore.NewMemoryStore()})

	assert.Empty(t, s.GetAll(ctx))
	assert.Equal(t, "default", s.Get(ctx, KeySiteName, "default"))
}
