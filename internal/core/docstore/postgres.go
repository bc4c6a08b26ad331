package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/agencyhq/agencysite/internal/storage/postgres"
)

// PostgresStore keeps every collection in the documents table, one jsonb
// row per document.
type PostgresStore struct {
	db *postgres.Client
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context, collection string, queries ...Query) (*ListResult, error) {
	p, err := compile(queries)
	if err != nil {
		return nil, err
	}

	where := []string{"collection = $1"}
	args := []any{collection}
	for _, f := range p.filters {
		args = append(args, TextValue(f.value))
		where = append(where, fmt.Sprintf("%s = $%d", filterExpr(f.field), len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM documents WHERE ` + whereSQL
	if err := s.db.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", collection, err)
	}

	var orderBy []string
	for _, o := range p.orders {
		dir := "ASC"
		if o.desc {
			dir = "DESC"
		}
		orderBy = append(orderBy, orderExpr(o.field)+" "+dir)
	}
	orderBy = append(orderBy, "created_at ASC", "id ASC")

	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE ` + whereSQL + `
		ORDER BY ` + strings.Join(orderBy, ", ")
	if p.limit > 0 {
		args = append(args, p.limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if p.offset > 0 {
		args = append(args, p.offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &ListResult{Documents: docs, Total: total}, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2`

	doc, err := scanDocument(s.db.DB.QueryRowContext(ctx, query, collection, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) Create(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := json.Marshal(nonNil(data))
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		RETURNING id, data, created_at, updated_at`

	doc, err := scanDocument(s.db.DB.QueryRowContext(ctx, query, collection, id, raw))
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return nil, fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
	}
	return doc, err
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	raw, err := json.Marshal(nonNil(data))
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = CURRENT_TIMESTAMP
		WHERE collection = $1 AND id = $2
		RETURNING id, data, created_at, updated_at`

	doc, err := scanDocument(s.db.DB.QueryRowContext(ctx, query, collection, id, raw))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return doc, err
}

func (s *PostgresStore) Put(ctx context.Context, collection, id string, data map[string]any) (*Document, error) {
	raw, err := json.Marshal(nonNil(data))
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = CURRENT_TIMESTAMP
		RETURNING id, data, created_at, updated_at`

	return scanDocument(s.db.DB.QueryRowContext(ctx, query, collection, id, raw))
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.DB.ExecContext(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var doc Document
	var raw []byte
	if err := row.Scan(&doc.ID, &raw, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &doc.Data); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}
	if doc.Data == nil {
		doc.Data = map[string]any{}
	}
	return &doc, nil
}

// Field names are checked against fieldPattern before they reach these.
func filterExpr(field string) string {
	switch field {
	case FieldID:
		return "id"
	case FieldCreatedAt:
		return "created_at::text"
	case FieldUpdatedAt:
		return "updated_at::text"
	}
	return "data->>'" + field + "'"
}

func orderExpr(field string) string {
	switch field {
	case FieldID:
		return "id"
	case FieldCreatedAt:
		return "created_at"
	case FieldUpdatedAt:
		return "updated_at"
	}
	return "data->'" + field + "'"
}

func nonNil(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}
