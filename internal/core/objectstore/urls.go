package objectstore

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/agencyhq/agencysite/config"
)

// URLBuilder turns file ids into public URLs from the configured templates.
type URLBuilder struct {
	endpoint string
	project  string
	bucket   string
	view     string
	preview  string
}

func NewURLBuilder(cfg *config.StorageConfig) *URLBuilder {
	return &URLBuilder{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		project:  cfg.ProjectID,
		bucket:   cfg.BucketID,
		view:     cfg.ViewTemplate,
		preview:  cfg.PreviewTemplate,
	}
}

// View returns the URL of the original file, or "" for an empty id.
func (u *URLBuilder) View(fileID string) string {
	if fileID == "" {
		return ""
	}
	return u.expand(u.view, fileID, nil)
}

// Preview returns a resized rendition URL. A zero width or height leaves
// that dimension to the image service.
func (u *URLBuilder) Preview(fileID string, width, height int) string {
	if fileID == "" {
		return ""
	}
	return u.expand(u.preview, fileID, []string{
		"{width}", dimension(width),
		"{height}", dimension(height),
	})
}

func (u *URLBuilder) expand(template, fileID string, extra []string) string {
	pairs := append([]string{
		"{endpoint}", u.endpoint,
		"{project}", url.PathEscape(u.project),
		"{bucket}", url.PathEscape(u.bucket),
		"{file}", url.PathEscape(fileID),
	}, extra...)
	return strings.NewReplacer(pairs...).Replace(template)
}

func dimension(n int) string {
	if n <= 0 {
		return "0"
	}
	return strconv.Itoa(n)
}
