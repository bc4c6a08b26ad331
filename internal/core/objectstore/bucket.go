// Package objectstore holds uploaded media: images referenced by blocks and
// entity fields through their file id.
package objectstore

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound = errors.New("file not found")
	ErrDisabled = errors.New("object storage is not configured")
)

type File struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
	URL         string    `json:"url,omitempty"`
}

type Bucket interface {
	ListFiles(ctx context.Context, prefix string) ([]File, error)
	// CreateFile stores r under a new file id and returns it.
	CreateFile(ctx context.Context, name, contentType string, r io.Reader) (File, error)
	DeleteFile(ctx context.Context, id string) error
}

// ContentType falls back to the file extension when the uploader sent
// nothing useful.
func ContentType(name, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
