package content

import (
	"strings"

	"github.com/agencyhq/agencysite/internal/core/blocks"
	"github.com/agencyhq/agencysite/internal/core/meta"
	"github.com/agencyhq/agencysite/internal/core/seo"
)

// Overlay keys in use.
const (
	KeySEOTitle              = "seo_title"
	KeySEOKeywords           = "seo_keywords"
	KeyContentBlocks         = "content_blocks"
	KeyServiceGroupID        = "service_group_id"
	KeyProjectID             = "project_id"
	KeyTestimonialEntityType = "testimonial_entity_type"
	KeyTestimonialEntityID   = "testimonial_entity_id"
)

var (
	SEOTitle                  = meta.Key[string]{Name: KeySEOTitle}
	SEOKeywords               = meta.Key[string]{Name: KeySEOKeywords}
	MetaDescription           = seo.MetaDescription
	MetaDescriptionOverridden = seo.Overridden
	ContentBlocks             = meta.Key[[]blocks.Block]{Name: KeyContentBlocks}
	ServiceGroupID            = meta.Key[string]{Name: KeyServiceGroupID}
	ProjectID                 = meta.Key[string]{Name: KeyProjectID}
	TestimonialEntityType     = meta.Key[string]{Name: KeyTestimonialEntityType}
	TestimonialEntityID       = meta.Key[string]{Name: KeyTestimonialEntityID}
)

// CamelCase converts an overlay key to its view-model name:
// "service_group_id" becomes "serviceGroupId".
func CamelCase(key string) string {
	parts := strings.Split(key, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 || b.Len() == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
