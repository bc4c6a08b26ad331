// Package docstore is a small collection/document abstraction with
// equality filters, ordering and pagination. Backends: memory, Postgres
// (jsonb) and MongoDB.
package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidField  = errors.New("invalid field name")
	ErrInvalidQuery  = errors.New("invalid query")
)

type Document struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type ListResult struct {
	Documents []*Document `json:"documents"`
	// Total counts every match, ignoring Limit and Offset.
	Total int `json:"total"`
}

type Store interface {
	List(ctx context.Context, collection string, queries ...Query) (*ListResult, error)
	Get(ctx context.Context, collection, id string) (*Document, error)
	// Create fails with ErrAlreadyExists when id is taken. An empty id is
	// replaced by a random UUID.
	Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	// Update merges data into the existing top-level fields.
	Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	// Put creates the document or replaces its data in a single call.
	Put(ctx context.Context, collection, id string, data map[string]any) (*Document, error)
	Delete(ctx context.Context, collection, id string) error
}

func (d *Document) String(field string) string {
	if d == nil {
		return ""
	}
	s, _ := d.Data[field].(string)
	return s
}
