package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryBucket keeps files in process memory. Used in tests and local
// development without cloud credentials.
type MemoryBucket struct {
	mu    sync.RWMutex
	files map[string]File
	data  map[string][]byte
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{files: map[string]File{}, data: map[string][]byte{}}
}

func (b *MemoryBucket) ListFiles(ctx context.Context, prefix string) ([]File, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	files := []File{}
	for id, f := range b.files {
		if strings.HasPrefix(id, prefix) {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })
	return files, nil
}

func (b *MemoryBucket) CreateFile(ctx context.Context, name, contentType string, r io.Reader) (File, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return File{}, fmt.Errorf("failed to upload %s: %w", name, err)
	}
	f := File{
		ID:          uuid.NewString() + strings.ToLower(path.Ext(name)),
		Name:        name,
		ContentType: ContentType(name, contentType),
		Size:        int64(buf.Len()),
		CreatedAt:   time.Now().UTC(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[f.ID] = f
	b.data[f.ID] = buf.Bytes()
	return f, nil
}

func (b *MemoryBucket) DeleteFile(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.files[id]; !ok {
		return ErrNotFound
	}
	delete(b.files, id)
	delete(b.data, id)
	return nil
}

// Content returns the stored bytes of a file.
func (b *MemoryBucket) Content(id string) ([]byte, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.data[id]
	return data, ok
}
