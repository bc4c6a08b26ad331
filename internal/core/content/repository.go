package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agencyhq/agencysite/internal/core/docstore"
)

// Stored document fields.
const (
	fieldTitle     = "title"
	fieldSlug      = "slug"
	fieldExcerpt   = "excerpt"
	fieldContent   = "content"
	fieldPublished = "published"
	fieldSortOrder = "sortOrder"
	fieldFields    = "fields"
)

type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

func (r *Repository) Create(ctx context.Context, e *Entity) error {
	doc, err := r.store.Create(ctx, e.Kind.Collection(), e.ID, toData(e))
	if err != nil {
		return err
	}
	e.ID = doc.ID
	e.CreatedAt = doc.CreatedAt
	e.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, kind Kind, id string) (*Entity, error) {
	doc, err := r.store.Get(ctx, kind.Collection(), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromDocument(kind, doc)
}

func (r *Repository) GetBySlug(ctx context.Context, kind Kind, slug string) (*Entity, error) {
	res, err := r.store.List(ctx, kind.Collection(), docstore.Equal(fieldSlug, slug), docstore.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(res.Documents) == 0 {
		return nil, nil
	}
	return fromDocument(kind, res.Documents[0])
}

func (r *Repository) List(ctx context.Context, kind Kind, opts ListOptions) ([]*Entity, int, error) {
	queries := []docstore.Query{
		docstore.OrderAsc(fieldSortOrder),
		docstore.OrderAsc(fieldTitle),
	}
	if opts.PublishedOnly {
		queries = append(queries, docstore.Equal(fieldPublished, true))
	}
	if opts.Limit > 0 {
		queries = append(queries, docstore.Limit(opts.Limit))
	}
	if opts.Offset > 0 {
		queries = append(queries, docstore.Offset(opts.Offset))
	}

	res, err := r.store.List(ctx, kind.Collection(), queries...)
	if err != nil {
		return nil, 0, err
	}
	entities := make([]*Entity, 0, len(res.Documents))
	for _, doc := range res.Documents {
		e, err := fromDocument(kind, doc)
		if err != nil {
			return nil, 0, err
		}
		entities = append(entities, e)
	}
	return entities, res.Total, nil
}

func (r *Repository) Update(ctx context.Context, e *Entity) error {
	doc, err := r.store.Update(ctx, e.Kind.Collection(), e.ID, toData(e))
	if err != nil {
		return err
	}
	e.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *Repository) Delete(ctx context.Context, kind Kind, id string) error {
	return r.store.Delete(ctx, kind.Collection(), id)
}

func toData(e *Entity) map[string]any {
	fields := e.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return map[string]any{
		fieldTitle:     e.Title,
		fieldSlug:      e.Slug,
		fieldExcerpt:   e.Excerpt,
		fieldContent:   e.Content,
		fieldPublished: e.Published,
		fieldSortOrder: e.SortOrder,
		fieldFields:    fields,
	}
}

// fromDocument goes through JSON so every backend's number and map
// representations decode the same way.
func fromDocument(kind Kind, doc *docstore.Document) (*Entity, error) {
	raw, err := json.Marshal(doc.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", kind, doc.ID, err)
	}
	var stored struct {
		Title     string         `json:"title"`
		Slug      string         `json:"slug"`
		Excerpt   string         `json:"excerpt"`
		Content   string         `json:"content"`
		Published bool           `json:"published"`
		SortOrder float64        `json:"sortOrder"`
		Fields    map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("failed to read %s %s: %w", kind, doc.ID, err)
	}
	if stored.Fields == nil {
		stored.Fields = map[string]any{}
	}
	return &Entity{
		ID:        doc.ID,
		Kind:      kind,
		Title:     stored.Title,
		Slug:      stored.Slug,
		Excerpt:   stored.Excerpt,
		Content:   stored.Content,
		Published: stored.Published,
		SortOrder: int(stored.SortOrder),
		Fields:    stored.Fields,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
