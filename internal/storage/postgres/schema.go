package postgres

import (
	"context"
	"fmt"
)

// schema is idempotent; Migrate runs every statement on each call.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection VARCHAR(100) NOT NULL,
		id VARCHAR(255) NOT NULL,
		data JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_entity_key
		ON documents (collection, (data->>'entityId'), (data->>'metaKey'))`,
	`CREATE INDEX IF NOT EXISTS idx_documents_key_value
		ON documents (collection, (data->>'metaKey'), (data->>'metaValue'))`,
	`CREATE INDEX IF NOT EXISTS idx_documents_slug
		ON documents (collection, (data->>'slug'))`,
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(50) NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		user_agent TEXT NOT NULL DEFAULT '',
		ip_address VARCHAR(64) NOT NULL DEFAULT '',
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_id)`,
}

func (c *Client) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
