package content

import (
	"fmt"

	"github.com/agencyhq/agencysite/internal/core/meta"
)

type Kind string

const (
	KindServiceGroup Kind = "service_group"
	KindService      Kind = "service"
	KindProject      Kind = "project"
	KindCaseStudy    Kind = "case_study"
	KindPage         Kind = "page"
	KindTestimonial  Kind = "testimonial"
)

type kindInfo struct {
	collection string
	path       string
	label      string
	relations  []string
}

var kinds = map[Kind]kindInfo{
	KindServiceGroup: {collection: "serviceGroups", path: "service-groups", label: "Service group"},
	KindService:      {collection: "services", path: "services", label: "Service", relations: []string{KeyServiceGroupID}},
	KindProject:      {collection: "projects", path: "projects", label: "Project"},
	KindCaseStudy:    {collection: "caseStudies", path: "case-studies", label: "Case study", relations: []string{KeyProjectID}},
	KindPage:         {collection: "pages", path: "pages", label: "Page"},
	KindTestimonial: {collection: "testimonials", path: "testimonials", label: "Testimonial",
		relations: []string{KeyTestimonialEntityType, KeyTestimonialEntityID}},
}

// Kinds lists every kind in a fixed order.
func Kinds() []Kind {
	return []Kind{KindServiceGroup, KindService, KindProject, KindCaseStudy, KindPage, KindTestimonial}
}

// ParseKind accepts a kind name ("case_study") or its URL segment
// ("case-studies").
func ParseKind(s string) (Kind, error) {
	if _, ok := kinds[Kind(s)]; ok {
		return Kind(s), nil
	}
	for k, info := range kinds {
		if info.path == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) Collection() string {
	return kinds[k].collection
}

// MetaCollection is the overlay collection holding the kind's attributes.
func (k Kind) MetaCollection() string {
	return meta.Collection(kinds[k].collection)
}

func (k Kind) Path() string {
	return kinds[k].path
}

func (k Kind) Label() string {
	return kinds[k].label
}

func (k Kind) allowsRelation(key string) bool {
	for _, r := range kinds[k].relations {
		if r == key {
			return true
		}
	}
	return false
}

// isRelation reports whether key is a relationship key of any kind.
func isRelation(key string) bool {
	for _, info := range kinds {
		for _, r := range info.relations {
			if r == key {
				return true
			}
		}
	}
	return false
}
