package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/agencyhq/agencysite/internal/platform/logger"
)

const metaOriginalName = "original-name"

// GCSBucket stores each file as one object named by its id plus the
// original extension.
type GCSBucket struct {
	client  *storage.Client
	bucket  string
	timeout time.Duration
	log     *logger.Logger
}

func NewGCSBucket(client *storage.Client, bucket string, timeout time.Duration, log *logger.Logger) *GCSBucket {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GCSBucket{client: client, bucket: bucket, timeout: timeout, log: log.With("bucket", bucket)}
}

func (b *GCSBucket) ListFiles(ctx context.Context, prefix string) ([]File, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	it := b.client.Bucket(b.bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	files := []File{}
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		files = append(files, fileFromAttrs(attrs))
	}
	return files, nil
}

func (b *GCSBucket) CreateFile(ctx context.Context, name, contentType string, r io.Reader) (File, error) {
	// Uploads get a longer budget than metadata calls.
	ctx, cancel := context.WithTimeout(ctx, 4*b.timeout)
	defer cancel()

	// Close commits whatever was written; a failed copy cancels the
	// writer first so no truncated object is stored.
	wctx, abort := context.WithCancel(ctx)
	defer abort()

	id := uuid.NewString() + strings.ToLower(path.Ext(name))
	w := b.client.Bucket(b.bucket).Object(id).NewWriter(wctx)
	w.ContentType = ContentType(name, contentType)
	w.Metadata = map[string]string{metaOriginalName: name}
	if _, err := io.Copy(w, r); err != nil {
		abort()
		_ = w.Close()
		return File{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return File{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	b.log.Info("file uploaded", "file_id", id, "name", name)
	return fileFromAttrs(w.Attrs()), nil
}

func (b *GCSBucket) DeleteFile(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	err := b.client.Bucket(b.bucket).Object(id).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", id, err)
	}
	return nil
}

func fileFromAttrs(attrs *storage.ObjectAttrs) File {
	name := attrs.Metadata[metaOriginalName]
	if name == "" {
		name = attrs.Name
	}
	return File{
		ID:          attrs.Name,
		Name:        name,
		ContentType: attrs.ContentType,
		Size:        attrs.Size,
		CreatedAt:   attrs.Created,
	}
}
