package gcs

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/agencyhq/agencysite/config"
)

// NewClient opens a storage client. CredentialsFile may hold a path or the
// JSON key itself; when empty, application default credentials are used.
// STORAGE_EMULATOR_HOST is honoured by the storage library directly.
func NewClient(ctx context.Context, cfg *config.StorageConfig) (*storage.Client, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		if strings.HasPrefix(creds, "{") {
			opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
		} else {
			opts = append(opts, option.WithCredentialsFile(creds))
		}
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return client, nil
}
