// Package settings stores site-wide values, one document per key, using the
// same value encoding as the metadata overlay.
package settings

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agencyhq/agencysite/internal/core/docstore"
	"github.com/agencyhq/agencysite/internal/core/meta"
	"github.com/agencyhq/agencysite/internal/core/validation"
	"github.com/agencyhq/agencysite/internal/platform/logger"
)

const Collection = "settings"

const (
	fieldKey   = "key"
	fieldValue = "value"
)

const (
	KeySiteName               = "site_name"
	KeyTagline                = "tagline"
	KeyLogo                   = "logo"
	KeyContactEmail           = "contact_email"
	KeyContactPhone           = "contact_phone"
	KeyAddress                = "address"
	KeySocialLinks            = "social_links"
	KeyDefaultSEOTitle        = "default_seo_title"
	KeyDefaultMetaDescription = "default_meta_description"
)

// textKeys are returned verbatim; decoding "0123" as a number would lose
// the leading zero of a phone number.
var textKeys = map[string]bool{
	KeySiteName:               true,
	KeyTagline:                true,
	KeyLogo:                   true,
	KeyContactEmail:           true,
	KeyContactPhone:           true,
	KeyAddress:                true,
	KeyDefaultSEOTitle:        true,
	KeyDefaultMetaDescription: true,
}

func text(title string) *validation.SchemaProperty {
	return &validation.SchemaProperty{Type: validation.PropertyTypeString, Title: title}
}

func link(title string) *validation.SchemaProperty {
	return &validation.SchemaProperty{Type: validation.PropertyTypeString, Title: title, Format: "uri"}
}

var schema = validation.NewSchema("Settings", map[string]*validation.SchemaProperty{
	KeySiteName:     {Type: validation.PropertyTypeString, Title: "Site name", MaxLength: 120},
	KeyTagline:      text("Tagline"),
	KeyLogo:         text("Logo file id"),
	KeyContactEmail: {Type: validation.PropertyTypeString, Title: "Contact email", Format: "email"},
	KeyContactPhone: text("Contact phone"),
	KeyAddress:      text("Address"),
	KeySocialLinks: {
		Type:  validation.PropertyTypeObject,
		Title: "Social links",
		Properties: map[string]*validation.SchemaProperty{
			"facebook":  link("Facebook"),
			"instagram": link("Instagram"),
			"linkedin":  link("LinkedIn"),
			"x":         link("X"),
			"youtube":   link("YouTube"),
		},
	},
	KeyDefaultSEOTitle:        {Type: validation.PropertyTypeString, Title: "Default SEO title", MaxLength: 70},
	KeyDefaultMetaDescription: {Type: validation.PropertyTypeString, Title: "Default meta description", MaxLength: 300},
}, nil)

// Schema describes the known keys. Unknown keys are accepted as-is.
func Schema() map[string]interface{} {
	return schema
}

type Store struct {
	docs      docstore.Store
	validator *validation.Validator
	log       *logger.Logger
}

func NewStore(docs docstore.Store, validator *validation.Validator, log *logger.Logger) *Store {
	return &Store{docs: docs, validator: validator, log: log}
}

// GetAll returns every setting, decoded. A read failure is logged and
// yields an empty map.
func (s *Store) GetAll(ctx context.Context) map[string]any {
	res, err := s.docs.List(ctx, Collection)
	if err != nil {
		s.log.Warn("failed to load settings", "error", err)
		return map[string]any{}
	}
	out := make(map[string]any, len(res.Documents))
	for _, doc := range res.Documents {
		key := doc.String(fieldKey)
		if key == "" {
			key = doc.ID
		}
		out[key] = decode(key, doc.String(fieldValue))
	}
	return out
}

// Get returns one setting or def when it is missing or unreadable.
func (s *Store) Get(ctx context.Context, key string, def any) any {
	doc, err := s.docs.Get(ctx, Collection, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return def
	}
	if err != nil {
		s.log.Warn("failed to load setting", "key", key, "error", err)
		return def
	}
	return decode(key, doc.String(fieldValue))
}

func (s *Store) String(ctx context.Context, key, def string) string {
	if v, ok := s.Get(ctx, key, def).(string); ok {
		return v
	}
	return def
}

func (s *Store) Set(ctx context.Context, key string, value any) error {
	return s.SetMultiple(ctx, map[string]any{key: value})
}

// SetMultiple validates the known keys and writes every value
// concurrently. There is no rollback.
func (s *Store) SetMultiple(ctx context.Context, values map[string]any) error {
	for key := range values {
		if key == "" {
			return validation.Fail("key", "must not be empty")
		}
	}
	if err := s.validator.Validate(values, schema); err != nil {
		return err
	}

	var g errgroup.Group
	for key, value := range values {
		g.Go(func() error {
			encoded, err := meta.Encode(value)
			if err != nil {
				return fmt.Errorf("failed to set setting %s: %w", key, err)
			}
			_, err = s.docs.Put(ctx, Collection, key, map[string]any{
				fieldKey:   key,
				fieldValue: encoded,
			})
			if err != nil {
				return fmt.Errorf("failed to set setting %s: %w", key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Delete removes a setting and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	err := s.docs.Delete(ctx, Collection, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return true, nil
}

func decode(key, raw string) any {
	if textKeys[key] {
		return raw
	}
	return meta.Decode(raw)
}
