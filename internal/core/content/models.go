package content

import (
	"time"

	"github.com/agencyhq/agencysite/internal/core/blocks"
	"github.com/agencyhq/agencysite/internal/core/validation"
)

type Entity struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Title     string         `json:"title"`
	Slug      string         `json:"slug"`
	Excerpt   string         `json:"excerpt"`
	Content   string         `json:"content"`
	Published bool           `json:"published"`
	SortOrder int            `json:"sortOrder"`
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// SaveRequest is the combined admin form: entity fields plus the overlay
// fields stored next to the entity.
type SaveRequest struct {
	Title     string         `json:"title" binding:"required"`
	Slug      string         `json:"slug"`
	Excerpt   string         `json:"excerpt"`
	Content   string         `json:"content"`
	Published bool           `json:"published"`
	SortOrder int            `json:"sortOrder"`
	Fields    map[string]any `json:"fields"`

	SEOTitle    string `json:"seoTitle"`
	SEOKeywords string `json:"seoKeywords"`
	// MetaDescription is nil unless the editor touched the field.
	MetaDescription *string `json:"metaDescription"`
	// ContentBlocks is nil to leave the stored list untouched.
	ContentBlocks []blocks.Block `json:"contentBlocks"`
	// Relations holds relationship ids keyed by overlay key,
	// e.g. {"service_group_id": "..."}.
	Relations map[string]string `json:"relations"`
}

type EntityFields struct {
	Title     string
	Slug      string
	Excerpt   string
	Content   string
	Published bool
	SortOrder int
	Fields    map[string]any
}

// Split separates entity fields from overlay values. The meta description
// is not part of the overlay values; it goes through the SEO syncer.
func (r *SaveRequest) Split(kind Kind) (EntityFields, map[string]any, error) {
	fields := EntityFields{
		Title:     r.Title,
		Slug:      r.Slug,
		Excerpt:   r.Excerpt,
		Content:   r.Content,
		Published: r.Published,
		SortOrder: r.SortOrder,
		Fields:    r.Fields,
	}
	if fields.Fields == nil {
		fields.Fields = map[string]any{}
	}

	overlay := map[string]any{
		KeySEOTitle:    r.SEOTitle,
		KeySEOKeywords: r.SEOKeywords,
	}
	if r.ContentBlocks != nil {
		overlay[KeyContentBlocks] = r.ContentBlocks
	}
	for key, id := range r.Relations {
		id, err := relationValue(kind, "relations."+key, key, id)
		if err != nil {
			return EntityFields{}, nil, err
		}
		overlay[key] = id
	}
	return fields, overlay, nil
}

// relationValue checks a relationship id against the kind. Testimonial
// targets are stored under the kind name, whether the name or the URL
// segment was submitted.
func relationValue(kind Kind, field, key, id string) (string, error) {
	if !kind.allowsRelation(key) {
		return "", validation.Fail(field, "not supported for "+kind.Label())
	}
	if key == KeyTestimonialEntityType && id != "" {
		target, err := ParseKind(id)
		if err != nil {
			return "", validation.Fail(field, "must be a content kind")
		}
		return string(target), nil
	}
	return id, nil
}

// View is an entity merged with its overlay attributes, named in camelCase.
type View struct {
	Entity
	SEOTitle                  string            `json:"seoTitle"`
	SEOKeywords               string            `json:"seoKeywords"`
	MetaDescription           string            `json:"metaDescription"`
	MetaDescriptionOverridden bool              `json:"metaDescriptionOverridden"`
	EffectiveMetaDescription  string            `json:"effectiveMetaDescription"`
	ContentBlocks             []blocks.Block    `json:"contentBlocks"`
	Relations                 map[string]string `json:"relations,omitempty"`
	// Meta holds any other overlay attributes.
	Meta map[string]any `json:"meta,omitempty"`
}

type ListOptions struct {
	PublishedOnly bool
	Limit         int
	Offset        int
}

type ListResult struct {
	Entities []*Entity `json:"entities"`
	Total    int       `json:"total"`
	Limit    int       `json:"limit"`
	Offset   int       `json:"offset"`
}
