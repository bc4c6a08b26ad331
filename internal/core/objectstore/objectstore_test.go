package objectstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyhq/agencysite/config"
)

func TestURLBuilder(t *testing.T) {
	u := NewURLBuilder(&config.StorageConfig{
		Endpoint:        "https://cdn.example.com/",
		ProjectID:       "site",
		BucketID:        "media",
		ViewTemplate:    "{endpoint}/{bucket}/{file}?project={project}",
		PreviewTemplate: "{endpoint}/{bucket}/{file}?w={width}&h={height}",
	})

	assert.Equal(t, "https://cdn.example.com/media/abc.png?project=site", u.View("abc.png"))
	assert.Equal(t, "https://cdn.example.com/media/abc.png?w=400&h=0", u.Preview("abc.png", 400, 0))
	assert.Equal(t, "https://cdn.example.com/media/a%20b.png?project=site", u.View("a b.png"))
	assert.Empty(t, u.View(""))
	assert.Empty(t, u.Preview("", 10, 10))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("logo.PNG", ""))
	assert.Equal(t, "image/webp", ContentType("x.png", "image/webp"))
	assert.Equal(t, "application/octet-stream", ContentType("blob", "application/octet-stream"))
}

func TestMemoryBucket(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBucket()

	f, err := b.CreateFile(ctx, "Team Photo.JPG", "", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(f.ID, ".jpg"))
	assert.Equal(t, "Team Photo.JPG", f.Name)
	assert.Equal(t, "image/jpeg", f.ContentType)
	assert.Equal(t, int64(10), f.Size)

	data, ok := b.Content(f.ID)
	require.True(t, ok)
	assert.Equal(t, "jpeg bytes", string(data))

	files, err := b.ListFiles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	require.NoError(t, b.DeleteFile(ctx, f.ID))
	assert.ErrorIs(t, b.DeleteFile(ctx, f.ID), ErrNotFound)

	files, err = b.ListFiles(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, files)
}
